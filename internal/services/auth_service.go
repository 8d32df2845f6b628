package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"shopup-backend/internal/models"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/observability"
	"shopup-backend/pkg/supabase"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordAuthenticator is the password grant of the auth service.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
	User         models.SessionUser `json:"user"`
	CartCount    int                `json:"cart_count"`
}

// AuthService signs users in and out through the BaaS auth service. Passwords
// never touch this process beyond being forwarded.
type AuthService struct {
	authenticator PasswordAuthenticator
	sessions      auth.SessionProvider
	cart          *CartService
	logger        *zap.Logger
}

func NewAuthService(authenticator PasswordAuthenticator, sessions auth.SessionProvider, cart *CartService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		cart:          cart,
		logger:        logger,
	}
}

// Login signs in with email and password. When guestID is set the guest cart is
// merged into the user's cart; a failed merge does not fail the login.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, guestID string) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	session, err := s.authenticator.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if session.User == nil || session.User.ID == "" {
		return nil, fmt.Errorf("sign in: auth service returned no user")
	}

	resp := newAuthResponse(session)
	log := observability.LoggerOr(ctx, s.logger).With(zap.String("user_id", resp.User.ID))

	if s.cart != nil {
		if guestID != "" {
			if _, err := s.cart.Merge(ctx, guestID, resp.User.ID); err != nil {
				log.Warn("guest cart merge failed", zap.String("guest_id", guestID), zap.Error(err))
			}
		}
		resp.CartCount = s.cart.CountItems(ctx, resp.User.ID)
	}

	log.Info("user signed in")
	return resp, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	session, err := s.authenticator.RefreshSession(ctx, refreshToken)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return nil, auth.ErrNoSession
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return newAuthResponse(session), nil
}

func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.sessions.SignOut(ctx, accessToken)
}

func (s *AuthService) Session(ctx context.Context, accessToken string) (*models.Session, error) {
	return s.sessions.GetSession(ctx, accessToken)
}

func newAuthResponse(session *supabase.Session) *AuthResponse {
	resp := &AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresIn:    session.ExpiresIn,
	}
	if resp.TokenType == "" {
		resp.TokenType = "bearer"
	}
	if session.User != nil {
		resp.User = models.SessionUser{ID: session.User.ID, Email: session.User.Email, Role: session.User.Role}
	}
	return resp
}
