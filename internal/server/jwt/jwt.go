// Package jwt issues and validates the HS256 session tokens handed out after
// a successful login.
package jwt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Kind tags a token as access or refresh.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	// DefaultAccessTokenTTL is the access token lifetime when none is configured.
	DefaultAccessTokenTTL = 60 * time.Minute
	// DefaultRefreshTokenTTL is the refresh token lifetime when none is configured.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a valid token has an unexpected kind.
	ErrWrongTokenType = errors.New("wrong token type")
)

// signingMethod is fixed; tokens signed any other way are rejected.
var signingMethod = gojwt.SigningMethodHS256

// Extra is the closed set of optional claims a token may carry.
type Extra struct {
	// Auth names the authentication method that produced the token
	// ("local" or a provider name).
	Auth string `json:"auth,omitempty"`
}

// Claims is the signed payload: sub, iat, exp, type and the optional extras.
type Claims struct {
	Type Kind `json:"type"`
	Extra
	gojwt.RegisteredClaims
}

// Config holds the process-wide signing settings.
type Config struct {
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service signs and verifies tokens with a shared secret.
type Service struct {
	logger          *slog.Logger
	clock           func() time.Time
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates a token service. Zero TTLs fall back to the defaults.
func NewService(cfg Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}

	s := &Service{
		logger:          logger,
		clock:           time.Now,
		secret:          cfg.Secret,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

// Issue signs a token for subject of the given kind that expires after ttl.
func (s *Service) Issue(subject string, kind Kind, ttl time.Duration, extra Extra) (string, error) {
	now := s.clock()

	claims := Claims{
		Type:  kind,
		Extra: extra,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := gojwt.NewWithClaims(signingMethod, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// IssueAccess signs an access token with the default access TTL.
func (s *Service) IssueAccess(subject string, extra Extra) (string, error) {
	return s.Issue(subject, KindAccess, s.accessTokenTTL, extra)
}

// IssueRefresh signs a refresh token with the default refresh TTL.
func (s *Service) IssueRefresh(subject string) (string, error) {
	return s.Issue(subject, KindRefresh, s.refreshTokenTTL, Extra{})
}

// Decode verifies signature and expiry. It does not look at the type claim.
func (s *Service) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return s.secret, nil
	},
		gojwt.WithValidMethods([]string{signingMethod.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		s.logger.Debug("token decode failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		s.logger.Debug("token decode failed: missing subject")
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// DecodeTyped decodes the token and requires its type claim to equal kind.
func (s *Service) DecodeTyped(tokenString string, kind Kind) (*Claims, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != kind {
		s.logger.Debug("token type mismatch",
			slog.String("expected", string(kind)),
			slog.String("actual", string(claims.Type)))
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrWrongTokenType, kind, claims.Type)
	}

	return claims, nil
}
