package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// User is the GoTrue user object.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	LastSignInAt *time.Time     `json:"last_sign_in_at"`
	CreatedAt    *time.Time     `json:"created_at"`
}

// Session is a GoTrue token grant.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// AuthClient wraps the /auth/v1 endpoints.
type AuthClient struct {
	client *Client
}

func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// GetUser returns the user owning accessToken. Expired or revoked tokens yield an
// error matching ErrNoSession.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	req, err := a.client.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrNoSession
	}
	return &user, nil
}

// SignInWithPassword exchanges email and password for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return a.token(ctx, "password", body)
}

// RefreshSession exchanges a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return a.token(ctx, "refresh_token", body)
}

// SignOut revokes the session behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken)
	if err != nil {
		return err
	}
	_, err = a.client.do(req)
	return err
}

// Health checks that the auth service answers.
func (a *AuthClient) Health(ctx context.Context) error {
	req, err := a.client.newRequest(ctx, http.MethodGet, "/auth/v1/health", nil, "")
	if err != nil {
		return err
	}
	_, err = a.client.do(req)
	return err
}

func (a *AuthClient) token(ctx context.Context, grantType string, body any) (*Session, error) {
	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type="+grantType, body, "")
	if err != nil {
		return nil, err
	}
	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := resp.Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
