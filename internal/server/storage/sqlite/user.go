package sqlite

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
		switch uniqueViolation(err) {
		case "email":
			return storage.ErrUserAlreadyExists
		case "provider":
			return storage.ErrProviderAlreadyLinked
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.getUser(ctx, query, email)
}

// GetUserByProvider retrieves user by provider subject
func (s *Storage) GetUserByProvider(ctx context.Context, provider, sub string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider = ? AND provider_sub = ?`
	return s.getUser(ctx, query, provider, sub)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Storage) getUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	return scanUser(ctx, s.db, query, args...)
}

func scanUser(ctx context.Context, q rowQuerier, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var (
		passwordHash, fullName, picture, provider, providerSub sql.NullString
		lockedUntil, lastLogin                                 sql.NullTime
	)

	err := q.QueryRowContext(ctx, query, args...).Scan(
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
	now := time.Now().UTC()

	query := `
		UPDATE users
		SET email = ?, password_hash = ?, full_name = ?, profile_picture = ?,
			provider = ?, provider_sub = ?, is_active = ?, is_verified = ?,
			failed_login_attempts = ?, locked_until = ?, last_login = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := s.db.ExecContext(ctx, query,
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
		now,
		user.ID,
		user.Version,
	)
	if err != nil {
		switch uniqueViolation(err) {
		case "email":
			return storage.ErrUserAlreadyExists
		case "provider":
			return storage.ErrProviderAlreadyLinked
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, user.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		return storage.ErrVersionConflict
	}

	user.Version++
	user.UpdatedAt = now

	return nil
}

// RecordLoginFailure bumps the failed-login counter atomically and locks the
// account once it reaches maxAttempts
func (s *Storage) RecordLoginFailure(ctx context.Context, user *models.User, maxAttempts int, lockUntil time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// SET expressions see the row as it was before the update
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
			updated_at = ?, version = version + 1
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query, maxAttempts, lockUntil.UTC(), time.Now().UTC(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrUserNotFound
	}

	stored, err := scanUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = ?`, user.ID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.FailedLoginAttempts = stored.FailedLoginAttempts
	user.LockedUntil = stored.LockedUntil
	user.Version = stored.Version
	user.UpdatedAt = stored.UpdatedAt

	return nil
}
