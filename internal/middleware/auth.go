package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/services"
)

// SessionCookie is the name of the opaque session id cookie.
const SessionCookie = "sp_session"

const userKey = "currentUser"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		log:         log.With("Middleware", "AuthMiddleware"),
		authService: authService,
	}
}

// LoadSession resolves the session cookie to a user, if any, and stashes
// it on the gin context. It never aborts; anonymous requests pass through.
func (am *AuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || sid == "" {
			c.Next()
			return
		}
		user, err := am.authService.GetSession(c.Request.Context(), sid)
		if err != nil {
			am.log.Warn("session lookup failed", "error", err)
			c.Next()
			return
		}
		if user != nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// RequireAuth aborts anonymous requests. Must run after LoadSession.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user for this request, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}
