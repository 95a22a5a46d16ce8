package storage

import (
	"context"
	"time"

	"github.com/aification/authsvc/internal/models"
)

// UserStorage defines interface for user persistence
type UserStorage interface {
	// CreateUser inserts a new user. An empty ID is replaced with a new UUID;
	// CreatedAt, UpdatedAt and Version are set by the store.
	// Returns ErrUserAlreadyExists if the email is taken and
	// ErrProviderAlreadyLinked if the (provider, provider_sub) pair is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by exact email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByProvider retrieves user linked to the given provider subject
	// Returns ErrUserNotFound if no user is linked
	GetUserByProvider(ctx context.Context, provider, sub string) (*models.User, error)

	// UpdateUser writes all mutable fields if the stored version still equals
	// user.Version, then bumps Version and UpdatedAt on the passed user.
	// Returns ErrVersionConflict on a stale version, ErrUserNotFound if the
	// user is gone and ErrProviderAlreadyLinked on a provider clash.
	UpdateUser(ctx context.Context, user *models.User) error

	// RecordLoginFailure increments the failed-login counter in one statement
	// and sets locked_until to lockUntil once the counter reaches maxAttempts.
	// Concurrent failures are never lost. The passed user is refreshed with
	// the stored counter, lock, version and updated_at.
	// Returns ErrUserNotFound if the user is gone.
	RecordLoginFailure(ctx context.Context, user *models.User, maxAttempts int, lockUntil time.Time) error
}
