package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Contextualist/submit-patch/internal/handlers"
	"github.com/Contextualist/submit-patch/internal/middleware"
)

type RouterConfig struct {
	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware
	PatchHandler   *handlers.PatchHandler
	ReviewHandler  *handlers.ReviewHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.Use(cfg.AuthMiddleware.LoadSession())

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/login", cfg.AuthHandler.Login)
	router.GET("/oauth_callback", cfg.AuthHandler.OAuthCallback)
	router.POST("/logout", cfg.AuthHandler.Logout)
	router.GET("/patch/:id", cfg.PatchHandler.GetSubjectPatch)
	router.GET("/episode/:id", cfg.PatchHandler.GetEpisodePatch)
	router.GET("/patches", cfg.PatchHandler.ListSubjectPatches)
	router.GET("/episode-patches", cfg.PatchHandler.ListEpisodePatches)
	router.GET("/contrib/:user_id", cfg.PatchHandler.ListSubjectPatchesBySubmitter)
	router.GET("/contrib/:user_id/episode", cfg.PatchHandler.ListEpisodePatchesBySubmitter)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Me
	protected.GET("/me", cfg.AuthHandler.Me)
	// Suggest
	protected.POST("/suggest", cfg.PatchHandler.SuggestSubject)
	protected.POST("/suggest-episode", cfg.PatchHandler.SuggestEpisode)
	// Review and withdrawal
	api := protected.Group("/api")
	{
		api.POST("/review-patch/:id", cfg.ReviewHandler.ReviewSubjectPatch)
		api.POST("/review-episode/:id", cfg.ReviewHandler.ReviewEpisodePatch)
		api.POST("/delete-patch/:id", cfg.PatchHandler.DeleteSubjectPatch)
		api.POST("/delete-episode/:id", cfg.PatchHandler.DeleteEpisodePatch)
	}

	return router
}
