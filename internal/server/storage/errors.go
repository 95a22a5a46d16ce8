package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that a user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrProviderAlreadyLinked indicates that the (provider, provider_sub)
	// pair already belongs to another user
	ErrProviderAlreadyLinked = errors.New("provider identity already linked")

	// ErrVersionConflict indicates that the user was modified since it was read
	ErrVersionConflict = errors.New("user version conflict")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")
)
