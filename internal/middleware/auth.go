package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"caseportal/internal/models"
	"caseportal/internal/service"
)

const (
	ContextUser      = "current_user"
	ContextSessionID = "session_id"
	ContextToken     = "session_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Principal, error)
	TouchSession(ctx context.Context, token string, ip string, userAgent string) error
}

// TokenFromRequest reads the session token from the cookie, falling back to
// an Authorization bearer header.
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func Auth(auth Authenticator, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Error().Err(err).Msg("session lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_session"})
			return
		}

		if err := auth.TouchSession(c.Request.Context(), token, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
			log.Warn().Err(err).Str("user_id", principal.User.ID).Msg("session touch failed")
		}

		c.Set(ContextToken, token)
		c.Set(ContextSessionID, principal.SessionID)
		c.Set(ContextUser, principal.User)

		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}
