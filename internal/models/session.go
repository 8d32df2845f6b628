package models

import "time"

// SessionUser is the identity behind a session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a verified BaaS session. It is never persisted.
type Session struct {
	AccessToken string      `json:"-"`
	User        SessionUser `json:"user"`
	ExpiresAt   time.Time   `json:"expires_at,omitempty"`
}
