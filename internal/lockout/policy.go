// Package lockout implements the temporary account lock applied after
// repeated failed password logins.
package lockout

import (
	"time"

	"github.com/aification/authsvc/internal/models"
)

const (
	// DefaultMaxAttempts is the number of consecutive failures that locks an account.
	DefaultMaxAttempts = 5
	// DefaultWindow is how long a locked account stays locked.
	DefaultWindow = 30 * time.Minute
)

// Policy tracks failed attempts and lock windows on a user record.
// It only mutates the record; stores apply the same failure rule atomically
// (storage.UserStorage.RecordLoginFailure).
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Default returns the 5 attempts / 30 minutes policy.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Window: DefaultWindow}
}

// IsLocked reports whether the user is inside a lock window at now.
func (p Policy) IsLocked(u *models.User, now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockDeadline is the end of a lock window started at now.
func (p Policy) LockDeadline(now time.Time) time.Time {
	return now.Add(p.Window)
}

// RecordFailure counts a failed attempt and starts a lock window once the
// counter reaches MaxAttempts. The counter is not reset when a window
// expires, so a stale counter re-locks on the next failure.
func (p Policy) RecordFailure(u *models.User, now time.Time) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= p.MaxAttempts {
		until := p.LockDeadline(now)
		u.LockedUntil = &until
	}
}

// RecordSuccess clears lockout state and stamps the login time.
func (p Policy) RecordSuccess(u *models.User, now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
}
