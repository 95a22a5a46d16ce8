package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aification/authsvc/internal/models"
	"github.com/aification/authsvc/internal/server/storage"
)

const userColumns = `id, email, password_hash, full_name, profile_picture, provider, provider_sub,
		is_active, is_verified, failed_login_attempts, locked_until,
		created_at, updated_at, last_login, version`

func mapUniqueViolation(err error) error {
	switch violatedConstraint(err) {
	case constraintEmail:
		return storage.ErrUserAlreadyExists
	case constraintProviderSub:
		return storage.ErrProviderAlreadyLinked
	}
	return nil
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Version = 1

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullString(user.PasswordHash),
		nullString(user.FullName),
		nullString(user.ProfilePicture),
		nullString(user.Provider),
		nullString(user.ProviderSub),
		user.IsActive,
		user.IsVerified,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLogin,
		user.Version,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.getUser(ctx, query, email)
}

// GetUserByProvider retrieves user by provider subject
func (s *Storage) GetUserByProvider(ctx context.Context, provider, sub string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider = $1 AND provider_sub = $2`
	return s.getUser(ctx, query, provider, sub)
}

func (s *Storage) getUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var (
		passwordHash, fullName, picture, provider, providerSub sql.NullString
		lockedUntil, lastLogin                                 sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&fullName,
		&picture,
		&provider,
		&providerSub,
		&user.IsActive,
		&user.IsVerified,
		&user.FailedLoginAttempts,
		&lockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
		&user.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.PasswordHash = passwordHash.String
	user.FullName = fullName.String
	user.ProfilePicture = picture.String
	user.Provider = provider.String
	user.ProviderSub = providerSub.String
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// UpdateUser updates user information if user.Version matches the stored row
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, profile_picture = $4,
			provider = $5, provider_sub = $6, is_active = $7, is_verified = $8,
			failed_login_attempts = $9, locked_until = $10, last_login = $11,
			updated_at = now(), version = version + 1
		WHERE id = $12 AND version = $13
		RETURNING version, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		user.Email,
		nullString(user.PasswordHash),
		nullString(user.FullName),
		nullString(user.ProfilePicture),
		nullString(user.Provider),
		nullString(user.ProviderSub),
		user.IsActive,
		user.IsVerified,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLogin,
		user.ID,
		user.Version,
	).Scan(&user.Version, &user.UpdatedAt)
	if err == nil {
		return nil
	}

	if mapped := mapUniqueViolation(err); mapped != nil {
		return mapped
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update user: %w", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, user.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return storage.ErrUserNotFound
	}

	return storage.ErrVersionConflict
}

// RecordLoginFailure bumps the failed-login counter atomically and locks the
// account once it reaches maxAttempts
func (s *Storage) RecordLoginFailure(ctx context.Context, user *models.User, maxAttempts int, lockUntil time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE locked_until END,
			updated_at = now(), version = version + 1
		WHERE id = $3
		RETURNING failed_login_attempts, locked_until, version, updated_at
	`

	var lockedUntil sql.NullTime
	err := s.db.QueryRowContext(ctx, query, maxAttempts, lockUntil.UTC(), user.ID).
		Scan(&user.FailedLoginAttempts, &lockedUntil, &user.Version, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrUserNotFound
		}
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	user.LockedUntil = nil
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}

	return nil
}
