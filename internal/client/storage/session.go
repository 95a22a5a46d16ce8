// Package storage defines the authctl session store.
package storage

import (
	"context"
	"time"
)

// SessionStorage stores the single active authctl session.
type SessionStorage interface {
	// SaveSession replaces the stored session
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound when nobody is logged in
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session (logout)
	DeleteSession(ctx context.Context) error
}

// Session is what a successful login leaves on disk.
type Session struct {
	ServerURL   string `json:"server_url"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	AuthMethod  string `json:"auth_method"`
	// ExpiresAt is a unix timestamp; zero when the server did not say
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// Expired reports whether the access token is known to be past its lifetime.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != 0 && !now.Before(time.Unix(s.ExpiresAt, 0))
}
