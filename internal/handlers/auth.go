package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Contextualist/submit-patch/internal/middleware"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/services"
)

type AuthHandler struct {
	log        *logger.Logger
	svc        services.AuthService
	sessionTTL int
	secureOnly bool
}

func NewAuthHandler(log *logger.Logger, svc services.AuthService, sessionTTLSeconds int, secureOnly bool) *AuthHandler {
	return &AuthHandler{
		log:        log.With("Handler", "AuthHandler"),
		svc:        svc,
		sessionTTL: sessionTTLSeconds,
		secureOnly: secureOnly,
	}
}

// GET /login
func (h *AuthHandler) Login(c *gin.Context) {
	backTo := c.Query("back_to")
	// Only same-site relative paths may be used as a post-login target.
	if !strings.HasPrefix(backTo, "/") || strings.HasPrefix(backTo, "//") {
		backTo = "/"
	}
	loginURL, err := h.svc.LoginURL(backTo)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, loginURL)
}

// GET /oauth_callback
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	sid, backTo, err := h.svc.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, sid, h.sessionTTL, "/", "", h.secureOnly, true)
	if backTo == "" {
		backTo = "/"
	}
	c.Redirect(http.StatusFound, backTo)
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid, err := c.Cookie(middleware.SessionCookie)
	if err == nil && sid != "" {
		if err := h.svc.Logout(c.Request.Context(), sid); err != nil {
			h.log.Warn("session delete failed", "error", err)
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureOnly, true)
	RespondOK(c, gin.H{"status": "logged out"})
}

// GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}
	RespondOK(c, gin.H{"user": user})
}
