// Package auth verifies BaaS access tokens.
package auth

import (
	"context"
	"errors"

	"shopup-backend/internal/models"
)

var ErrNoSession = errors.New("auth: no active session")

// SessionProvider resolves an access token to a session and revokes it.
type SessionProvider interface {
	GetSession(ctx context.Context, accessToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}
