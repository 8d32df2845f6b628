package handlers

import (
	"context"

	"shopup-backend/internal/models"
	"shopup-backend/internal/services"
)

// AuthServiceInterface defines the interface for auth service operations
type AuthServiceInterface interface {
	Login(ctx context.Context, req *services.LoginRequest, guestID string) (*services.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Session(ctx context.Context, accessToken string) (*models.Session, error)
}
