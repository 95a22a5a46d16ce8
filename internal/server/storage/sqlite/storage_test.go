package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aification/authsvc/internal/models"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$hash",
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(ctx, user))
	return user
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNew_ReopenFileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	createTestUser(t, ctx, s, "persist@x.com")
	require.NoError(t, s.Close())

	// migrations are idempotent and data survives a reopen
	s, err = New(ctx, path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	got, err := s.GetUserByEmail(ctx, "persist@x.com")
	require.NoError(t, err)
	assert.Equal(t, "persist@x.com", got.Email)
}

func TestNew_Tables(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	for _, table := range []string{"users", "refresh_tokens"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, table, name)
	}
}
