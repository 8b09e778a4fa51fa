package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rdpmakerop/spark-host-sell/auth"
	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	provider  auth.Provider
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewAuthHandler(provider auth.Provider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, logger: logger, heartbeat: 25 * time.Second}
}

type signInRequest struct {
	AccessToken string `json:"access_token"`
}

// GetSession reports whether the caller is signed in.
func (h *AuthHandler) GetSession(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "session": session})
}

// SignIn registers a session the client obtained from the auth provider and
// stores the token in a cookie for later requests.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	token := req.AccessToken
	if token == "" {
		token = middleware.AccessToken(c)
	}

	session, err := h.provider.SignIn(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) || errors.Is(err, auth.ErrInvalidToken) {
			requireLogin(c, "Please login again")
			return
		}
		h.logger.Error("Failed to sign in",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err),
		)
		backendFailure(c, http.StatusBadGateway, "Authentication service unavailable")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, cookieMaxAge(session), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "session": session})
}

// SignOut ends the session at the provider. It succeeds for anonymous
// callers so the client can always clear its state.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if session := middleware.SessionFrom(c); session != nil {
		if err := h.provider.SignOut(c.Request.Context(), session.AccessToken); err != nil {
			h.logger.Error("Failed to sign out",
				zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
				zap.Error(err),
			)
			backendFailure(c, http.StatusBadGateway, "Failed to sign out")
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": false, "redirect": models.RouteCatalog})
}

// Events streams the caller's session changes as server-sent events. The
// subscription is released when the client disconnects.
func (h *AuthHandler) Events(c *gin.Context) {
	events, unsubscribe := h.provider.Subscribe()
	defer unsubscribe()

	middleware.SessionStreamOpened()
	defer middleware.SessionStreamClosed()

	session := middleware.SessionFrom(c)
	initial := models.SessionEvent{Type: models.SessionSignedOut, At: time.Now().UTC()}
	if session != nil {
		initial = models.SessionEvent{Type: models.SessionSignedIn, UserID: session.User.ID, At: time.Now().UTC()}
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("session", initial)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			c.Writer.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if session == nil || event.UserID != session.User.ID {
				continue
			}
			c.SSEvent("session", event)
			c.Writer.Flush()
			if event.Type == models.SessionSignedOut {
				return
			}
		}
	}
}

func cookieMaxAge(session *models.Session) int {
	if session.ExpiresAt.IsZero() {
		return 0
	}
	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return -1
	}
	return int(remaining.Seconds())
}
