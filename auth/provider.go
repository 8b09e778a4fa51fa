// Package auth resolves sessions issued by the hosted auth provider and
// publishes session changes to interested listeners.
package auth

import (
	"context"
	"errors"

	"github.com/rdpmakerop/spark-host-sell/models"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid access token")
)

type Provider interface {
	// GetSession resolves an access token into a session. It returns
	// ErrNoSession for an empty token and ErrInvalidToken for one the
	// provider rejects.
	GetSession(ctx context.Context, accessToken string) (*models.Session, error)
	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	// SignIn announces a session the client obtained from the provider.
	SignIn(ctx context.Context, accessToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Subscribe() (<-chan models.SessionEvent, func())
}
