package middleware

import (
	"errors"
	"strings"

	"github.com/rdpmakerop/spark-host-sell/auth"
	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionKey = "session"
	// SessionCookie is where the SPA keeps the provider's access token when
	// it does not send an Authorization header.
	SessionCookie = "sb-access-token"
)

// SessionMiddleware resolves the caller's session, if any, and stores it on
// the context. Requests without a valid session continue anonymously.
func SessionMiddleware(provider auth.Provider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessToken(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := provider.GetSession(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(sessionKey, session)
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSession):
		default:
			logger.Warn("Failed to resolve session",
				zap.String("trace_id", GetTraceID(c.Request.Context())),
				zap.Error(err),
			)
		}
		c.Next()
	}
}

// AccessToken returns the bearer token or the session cookie.
func AccessToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func SessionFrom(c *gin.Context) *models.Session {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}
