package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopup-backend/internal/models"
	"shopup-backend/pkg/supabase"
)

// SupabaseSessions asks the auth service about every token.
type SupabaseSessions struct {
	client *supabase.Client
}

func NewSupabaseSessions(client *supabase.Client) *SupabaseSessions {
	return &SupabaseSessions{client: client}
}

func (s *SupabaseSessions) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrNoSession
	}

	user, err := s.client.Auth().GetUser(ctx, accessToken)
	if err != nil {
		if errors.Is(err, supabase.ErrNoSession) {
			return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &models.Session{
		AccessToken: accessToken,
		User: models.SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

func (s *SupabaseSessions) SignOut(ctx context.Context, accessToken string) error {
	if err := s.client.Auth().SignOut(ctx, accessToken); err != nil {
		// Signing out an already dead session is not a failure.
		if errors.Is(err, supabase.ErrNoSession) {
			return nil
		}
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}
