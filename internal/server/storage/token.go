package storage

import (
	"context"
	"time"

	"github.com/aification/authsvc/internal/models"
)

// TokenStorage defines interface for refresh token persistence.
// Tokens are looked up by their SHA-256 hash, never by the raw value.
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token record
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token by token hash
	// Returns ErrTokenNotFound if token doesn't exist
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// RevokeRefreshToken marks the token as revoked
	// Returns ErrTokenNotFound if token doesn't exist
	RevokeRefreshToken(ctx context.Context, tokenHash string) error

	// DeleteExpiredTokens removes tokens that expired before now
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}

// Store is a complete backend: users, refresh tokens and lifecycle.
type Store interface {
	UserStorage
	TokenStorage
	Close() error
}
