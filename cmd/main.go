package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Contextualist/submit-patch/internal/clients/bangumi"
	"github.com/Contextualist/submit-patch/internal/clients/turnstile"
	"github.com/Contextualist/submit-patch/internal/db"
	"github.com/Contextualist/submit-patch/internal/handlers"
	"github.com/Contextualist/submit-patch/internal/middleware"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/repos"
	"github.com/Contextualist/submit-patch/internal/server"
	"github.com/Contextualist/submit-patch/internal/services"
	"github.com/Contextualist/submit-patch/internal/session"
	"github.com/Contextualist/submit-patch/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	appID := utils.GetEnv("BGM_TV_APP_ID", "", log)
	appSecret := utils.GetEnv("BGM_TV_APP_SECRET", "", log)
	wikiToken := utils.GetEnv("BGM_TV_WIKI_TOKEN", "", log)
	turnstileSecret := utils.GetEnv("TURNSTILE_SECRET_KEY", "", log)
	stateSecret := utils.GetEnv("OAUTH_STATE_SECRET", "defaultsecret", log)
	serverBaseURL := utils.GetEnv("SERVER_BASE_URL", "http://localhost:8080", log)
	bgmAuthBaseURL := utils.GetEnv("BGM_TV_AUTH_BASE_URL", "https://bgm.tv", log)
	bgmAPIBaseURL := utils.GetEnv("BGM_TV_API_BASE_URL", "https://api.bgm.tv", log)
	bgmNextBaseURL := utils.GetEnv("BGM_TV_NEXT_BASE_URL", "https://next.bgm.tv", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	sessionTTL := utils.GetEnvAsInt("SESSION_TTL", 604800, log)
	allowOrigins := utils.GetEnv("ALLOW_ORIGINS", "https://bgm.tv", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	subjectPatchRepo := repos.NewSubjectPatchRepo(thePG, log)
	episodePatchRepo := repos.NewEpisodePatchRepo(thePG, log)
	patchUserRepo := repos.NewPatchUserRepo(thePG, log)

	// Clients
	log.Info("Setting up clients from main...")
	wikiClient := bangumi.NewWikiClient(log, bgmNextBaseURL, wikiToken)
	oauthClient := bangumi.NewOAuthClient(log, bgmAuthBaseURL, bgmAPIBaseURL, appID, appSecret, serverBaseURL+"/oauth_callback")
	captcha := turnstile.NewVerifier(log, turnstileSecret)

	// Sessions
	sessionStore, err := session.NewRedisStore(log, redisAddr, time.Duration(sessionTTL)*time.Second)
	if err != nil {
		log.Error("Could not init session store", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(log, oauthClient, sessionStore, patchUserRepo, []byte(stateSecret))
	patchService := services.NewPatchService(thePG, log, subjectPatchRepo, episodePatchRepo, patchUserRepo, wikiClient, captcha)
	reviewService := services.NewReviewService(thePG, log, subjectPatchRepo, episodePatchRepo, wikiClient)

	// Handlers
	log.Info("Setting up handlers from main...")
	secureCookies := strings.HasPrefix(serverBaseURL, "https://")
	authHandler := handlers.NewAuthHandler(log, authService, sessionTTL, secureCookies)
	patchHandler := handlers.NewPatchHandler(log, patchService)
	reviewHandler := handlers.NewReviewHandler(log, reviewService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		PatchHandler:   patchHandler,
		ReviewHandler:  reviewHandler,
		AllowOrigins:   strings.Split(allowOrigins, ","),
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
