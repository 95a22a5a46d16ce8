package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aification/authsvc/internal/models"
	"github.com/aification/authsvc/internal/server/storage"
)

func TestUserStorage_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		wantError error
		user      *models.User
		name      string
	}{
		{
			name: "local user",
			user: &models.User{
				Email:        "local@x.com",
				PasswordHash: "hash123",
				IsActive:     true,
			},
		},
		{
			name: "provider-only user",
			user: &models.User{
				Email:          "fed@x.com",
				FullName:       "Fed User",
				ProfilePicture: "https://example.com/p.png",
				Provider:       "google",
				ProviderSub:    "sub-1",
				IsActive:       true,
				IsVerified:     true,
			},
		},
		{
			name: "explicit id and last login",
			user: &models.User{
				ID:           uuid.New().String(),
				Email:        "both@x.com",
				PasswordHash: "hash456",
				LastLogin:    timePtr(time.Now().UTC()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateUser(ctx, tt.user)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.user.ID)
			assert.EqualValues(t, 1, tt.user.Version)
			assert.False(t, tt.user.CreatedAt.IsZero())

			retrieved, err := s.GetUserByEmail(ctx, tt.user.Email)
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, retrieved.ID)
			assert.Equal(t, tt.user.PasswordHash, retrieved.PasswordHash)
			assert.Equal(t, tt.user.FullName, retrieved.FullName)
			assert.Equal(t, tt.user.ProfilePicture, retrieved.ProfilePicture)
			assert.Equal(t, tt.user.Provider, retrieved.Provider)
			assert.Equal(t, tt.user.ProviderSub, retrieved.ProviderSub)
			assert.Equal(t, tt.user.IsActive, retrieved.IsActive)
			assert.Equal(t, tt.user.IsVerified, retrieved.IsVerified)
			assert.Equal(t, tt.user.LastLogin != nil, retrieved.LastLogin != nil)
			assert.EqualValues(t, 1, retrieved.Version)
		})
	}
}

func TestUserStorage_CreateUser_Duplicates(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	require.NoError(t, s.CreateUser(ctx, &models.User{
		Email:       "dup@x.com",
		Provider:    "google",
		ProviderSub: "sub-1",
	}))

	err := s.CreateUser(ctx, &models.User{Email: "dup@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)

	err = s.CreateUser(ctx, &models.User{Email: "other@x.com", Provider: "google", ProviderSub: "sub-1"})
	assert.ErrorIs(t, err, storage.ErrProviderAlreadyLinked)

	// unlinked users do not collide on the (NULL, NULL) pair
	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "p1@x.com", PasswordHash: "h"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "p2@x.com", PasswordHash: "h"}))
}

func TestUserStorage_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "findme@x.com")

	tests := []struct {
		wantError error
		name      string
		email     string
	}{
		{name: "existing user", email: "findme@x.com"},
		{name: "unknown email", email: "notfound@x.com", wantError: storage.ErrUserNotFound},
		{name: "case-sensitive match", email: "FindMe@x.com", wantError: storage.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrieved, err := s.GetUserByEmail(ctx, tt.email)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, retrieved)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, retrieved.Email)
		})
	}
}

func TestUserStorage_GetUserByProvider(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := &models.User{Email: "fed@x.com", Provider: "google", ProviderSub: "sub-42"}
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByProvider(ctx, "google", "sub-42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.PasswordHash)
	assert.False(t, got.HasPassword())

	_, err = s.GetUserByProvider(ctx, "google", "sub-43")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.GetUserByProvider(ctx, "github", "sub-42")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_UpdateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s, "update@x.com")
	locked := time.Now().UTC().Add(30 * time.Minute)

	user.FailedLoginAttempts = 5
	user.LockedUntil = &locked
	user.Provider = "google"
	user.ProviderSub = "sub-9"
	require.NoError(t, s.UpdateUser(ctx, user))
	assert.EqualValues(t, 2, user.Version)

	got, err := s.GetUserByEmail(ctx, "update@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
	assert.WithinDuration(t, locked, *got.LockedUntil, time.Second)
	assert.Equal(t, "google", got.Provider)
	assert.Equal(t, "sub-9", got.ProviderSub)
	assert.EqualValues(t, 2, got.Version)

	got.FailedLoginAttempts = 0
	got.LockedUntil = nil
	require.NoError(t, s.UpdateUser(ctx, got))

	again, err := s.GetUserByEmail(ctx, "update@x.com")
	require.NoError(t, err)
	assert.Zero(t, again.FailedLoginAttempts)
	assert.Nil(t, again.LockedUntil)
}

func TestUserStorage_UpdateUser_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "race@x.com")

	first, err := s.GetUserByEmail(ctx, "race@x.com")
	require.NoError(t, err)
	second, err := s.GetUserByEmail(ctx, "race@x.com")
	require.NoError(t, err)

	first.FailedLoginAttempts++
	require.NoError(t, s.UpdateUser(ctx, first))

	second.FailedLoginAttempts++
	err = s.UpdateUser(ctx, second)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	got, err := s.GetUserByEmail(ctx, "race@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailedLoginAttempts)
}

func TestUserStorage_UpdateUser_Errors(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.UpdateUser(ctx, &models.User{ID: uuid.New().String(), Email: "ghost@x.com", Version: 1})
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "a@x.com", Provider: "google", ProviderSub: "s1"}))
	b := createTestUser(t, ctx, s, "b@x.com")

	b.Provider = "google"
	b.ProviderSub = "s1"
	err = s.UpdateUser(ctx, b)
	assert.ErrorIs(t, err, storage.ErrProviderAlreadyLinked)
}

func TestUserStorage_RecordLoginFailure(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user := createTestUser(t, ctx, s, "fail@x.com")
	lockUntil := time.Now().UTC().Add(30 * time.Minute)

	for i := 1; i < 3; i++ {
		require.NoError(t, s.RecordLoginFailure(ctx, user, 3, lockUntil))
		assert.Equal(t, i, user.FailedLoginAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.EqualValues(t, i+1, user.Version)
	}

	require.NoError(t, s.RecordLoginFailure(ctx, user, 3, lockUntil))
	assert.Equal(t, 3, user.FailedLoginAttempts)
	require.NotNil(t, user.LockedUntil)
	assert.WithinDuration(t, lockUntil, *user.LockedUntil, time.Second)

	got, err := s.GetUserByEmail(ctx, "fail@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, got.FailedLoginAttempts)
	require.NotNil(t, got.LockedUntil)
	assert.WithinDuration(t, lockUntil, *got.LockedUntil, time.Second)
	assert.Equal(t, user.Version, got.Version)
}

func TestUserStorage_RecordLoginFailure_StaleCopy(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestUser(t, ctx, s, "race@x.com")

	first, err := s.GetUserByEmail(ctx, "race@x.com")
	require.NoError(t, err)
	second, err := s.GetUserByEmail(ctx, "race@x.com")
	require.NoError(t, err)

	lockUntil := time.Now().UTC().Add(time.Hour)
	require.NoError(t, s.RecordLoginFailure(ctx, first, 5, lockUntil))
	require.NoError(t, s.RecordLoginFailure(ctx, second, 5, lockUntil))
	assert.Equal(t, 2, second.FailedLoginAttempts, "no version check, both failures count")

	// a stale optimistic write still conflicts afterwards
	first.FullName = "stale"
	first.Version = 1
	assert.ErrorIs(t, s.UpdateUser(ctx, first), storage.ErrVersionConflict)
}

func TestUserStorage_RecordLoginFailure_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.RecordLoginFailure(ctx, &models.User{ID: uuid.New().String()}, 5, time.Now())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
