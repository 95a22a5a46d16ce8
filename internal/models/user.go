package models

import "time"

// User is an identity record. A user always has a password hash,
// an external provider linkage, or both.
type User struct {
	ID                  string     `json:"id"`                        // UUID assigned by storage
	Email               string     `json:"email"`                     // unique, case-sensitive as stored
	PasswordHash        string     `json:"-"`                         // bcrypt hash, empty for provider-only accounts
	FullName            string     `json:"full_name,omitempty"`       // display name from the identity provider
	ProfilePicture      string     `json:"profile_picture,omitempty"` // avatar URL from the identity provider
	Provider            string     `json:"provider,omitempty"`        // e.g. "google"
	ProviderSub         string     `json:"provider_sub,omitempty"`    // provider's stable subject id
	IsActive            bool       `json:"is_active"`
	IsVerified          bool       `json:"is_verified"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	Version             int64      `json:"-"` // optimistic concurrency token
}

// HasPassword reports whether the user can log in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasProvider reports whether the user is linked to an external identity.
func (u *User) HasProvider() bool {
	return u.Provider != "" && u.ProviderSub != ""
}

// RefreshToken is the persisted shape of an issued refresh token.
type RefreshToken struct {
	ID        string    `json:"id"`         // UUID
	UserID    string    `json:"user_id"`    // owning user
	TokenHash string    `json:"token_hash"` // SHA256 of the opaque token
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
}
