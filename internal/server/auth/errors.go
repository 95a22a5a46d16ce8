package auth

import (
	"errors"

	"github.com/aification/authsvc/internal/server/identity"
	"github.com/aification/authsvc/internal/server/jwt"
)

var (
	// ErrEmailAlreadyRegistered is returned when the email already has an account.
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown email, passwordless account,
	// locked account and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderConflict is returned when the email is linked to a different
	// provider identity.
	ErrProviderConflict = errors.New("email linked to a different provider identity")

	// ErrMalformedAuthHeader is returned when the Authorization header is not
	// a bearer credential.
	ErrMalformedAuthHeader = errors.New("malformed authorization header")
)

// Errors from the codec and verifier, re-exported so callers only need this
// package to classify failures.
var (
	ErrInvalidToken               = jwt.ErrInvalidToken
	ErrWrongTokenType             = jwt.ErrWrongTokenType
	ErrIdentityVerificationFailed = identity.ErrVerificationFailed
	ErrConfiguration              = identity.ErrConfiguration
)
