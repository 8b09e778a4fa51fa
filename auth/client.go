package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type ClientConfig struct {
	// BaseURL of the hosted backend; the auth surface lives under /auth/v1.
	BaseURL string
	AnonKey string
	// JWTSecret enables local HS256 verification of access tokens.
	JWTSecret string
	Timeout   time.Duration
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Client implements Provider against the hosted auth REST surface.
type Client struct {
	baseURL    string
	anonKey    string
	jwtSecret  []byte
	httpClient *http.Client
	events     *Broadcaster
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		anonKey:    cfg.AnonKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		events:     NewBroadcaster(),
		logger:     logger,
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c
}

func (c *Client) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	if c.jwtSecret != nil {
		return c.verifyLocally(accessToken)
	}
	return c.fetchUser(ctx, accessToken)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	session, err := c.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &session.User, nil
}

func (c *Client) SignIn(ctx context.Context, accessToken string) (*models.Session, error) {
	session, err := c.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	c.events.Publish(models.SessionEvent{
		Type:   models.SessionSignedIn,
		UserID: session.User.ID,
		At:     time.Now().UTC(),
	})
	return session, nil
}

// SignOut revokes the session at the provider and announces it. A token the
// provider no longer accepts counts as already signed out.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	session, err := c.GetSession(ctx, accessToken)
	if err != nil {
		return err
	}

	if c.baseURL != "" {
		if err := c.logout(ctx, accessToken); err != nil && !errors.Is(err, ErrInvalidToken) {
			return err
		}
	}

	c.events.Publish(models.SessionEvent{
		Type:   models.SessionSignedOut,
		UserID: session.User.ID,
		At:     time.Now().UTC(),
	})
	return nil
}

func (c *Client) Subscribe() (<-chan models.SessionEvent, func()) {
	return c.events.Subscribe()
}

func (c *Client) verifyLocally(accessToken string) (*models.Session, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (any, error) {
		return c.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &models.Session{
		AccessToken: accessToken,
		User:        models.User{ID: claims.Subject, Email: claims.Email},
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (*models.Session, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "auth.GetUser")
	defer span.End()

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to reach auth provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth provider returned %d", resp.StatusCode)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: provider returned no user", ErrInvalidToken)
	}

	session := &models.Session{AccessToken: accessToken, User: user}
	// The provider already vouched for the token; the expiry is informational.
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err == nil && claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (c *Client) logout(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach auth provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidToken
	case resp.StatusCode >= 300:
		return fmt.Errorf("auth provider returned %d on logout", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}
