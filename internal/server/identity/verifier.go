// Package identity verifies Google-issued ID tokens presented by the
// frontend's sign-in button.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ProviderGoogle is the provider name stored on linked users and placed in
// the auth claim of tokens issued after a Google login.
const ProviderGoogle = "google"

// DefaultCertsURL is Google's JWKS endpoint.
const DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// googleIssuers are the iss values Google puts in ID tokens.
var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	// ErrConfiguration is returned when no audiences are configured.
	ErrConfiguration = errors.New("identity provider is not configured")
	// ErrVerificationFailed matches every *VerificationError.
	ErrVerificationFailed = errors.New("identity verification failed")
)

// VerificationError carries the reason an assertion was rejected.
type VerificationError struct {
	Reason error
}

func (e *VerificationError) Error() string {
	return "identity verification failed: " + e.Reason.Error()
}

func (e *VerificationError) Unwrap() []error {
	return []error{ErrVerificationFailed, e.Reason}
}

func verificationFailed(format string, args ...any) error {
	return &VerificationError{Reason: fmt.Errorf(format, args...)}
}

// Identity is what a verified assertion tells us about the user.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// KeySource resolves a signing key by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// looseBool accepts both true and "true"; Google has sent either.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = looseBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = looseBool(v)
	return nil
}

type googleClaims struct {
	Email         string    `json:"email"`
	EmailVerified looseBool `json:"email_verified"`
	Name          string    `json:"name"`
	Picture       string    `json:"picture"`
	gojwt.RegisteredClaims
}

// Verifier validates Google ID tokens against a key source and a set of
// accepted client ids.
type Verifier struct {
	keys      KeySource
	logger    *slog.Logger
	clock     func() time.Time
	audiences []string
	issuers   []string
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used for exp/iat checks.
func WithClock(clock func() time.Time) Option {
	return func(v *Verifier) {
		v.clock = clock
	}
}

// WithLogger sets the logger used for rejected assertions.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier. An empty audience list is allowed here;
// Verify reports it as ErrConfiguration.
func NewVerifier(keys KeySource, audiences []string, opts ...Option) *Verifier {
	v := &Verifier{
		keys:      keys,
		logger:    slog.Default(),
		clock:     time.Now,
		audiences: slices.Clone(audiences),
		issuers:   googleIssuers,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Provider returns the provider name for linked accounts.
func (v *Verifier) Provider() string {
	return ProviderGoogle
}

// Verify checks signature, expiry, issuer and audience of the assertion and
// returns the identity it asserts.
func (v *Verifier) Verify(ctx context.Context, assertion string) (*Identity, error) {
	if len(v.audiences) == 0 {
		return nil, fmt.Errorf("%w: no accepted audiences", ErrConfiguration)
	}

	claims := &googleClaims{}
	_, err := gojwt.ParseWithClaims(assertion, claims, func(token *gojwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keys.Key(ctx, kid)
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		v.logger.WarnContext(ctx, "id token rejected", slog.Any("error", err))
		return nil, &VerificationError{Reason: err}
	}

	if !slices.Contains(v.issuers, claims.Issuer) {
		v.logger.WarnContext(ctx, "id token rejected: issuer", slog.String("iss", claims.Issuer))
		return nil, verificationFailed("unexpected issuer %q", claims.Issuer)
	}

	if !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(v.audiences, aud)
	}) {
		v.logger.WarnContext(ctx, "id token rejected: audience", slog.Any("aud", []string(claims.Audience)))
		return nil, verificationFailed("audience not accepted")
	}

	if claims.Subject == "" {
		return nil, verificationFailed("missing sub claim")
	}
	if claims.Email == "" {
		return nil, verificationFailed("missing email claim")
	}

	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
