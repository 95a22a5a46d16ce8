// Package auth composes hashing, tokens, lockout and identity verification
// into signup, local login, federated login and token introspection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aification/authsvc/internal/lockout"
	"github.com/aification/authsvc/internal/models"
	"github.com/aification/authsvc/internal/server/identity"
	"github.com/aification/authsvc/internal/server/jwt"
	"github.com/aification/authsvc/internal/server/storage"
)

// MethodLocal is the auth claim of tokens issued after a password login.
const MethodLocal = "local"

// TokenTypeBearer is the token_type returned with every access token.
const TokenTypeBearer = "bearer"

const bearerPrefix = "bearer "

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenCodec issues and decodes session tokens.
type TokenCodec interface {
	IssueAccess(subject string, extra jwt.Extra) (string, error)
	DecodeTyped(token string, kind jwt.Kind) (*jwt.Claims, error)
	AccessTokenTTL() time.Duration
}

// IdentityVerifier checks a third-party identity assertion.
type IdentityVerifier interface {
	Provider() string
	Verify(ctx context.Context, assertion string) (*identity.Identity, error)
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// Principal is what a valid access token says about its bearer.
type Principal struct {
	Subject    string
	AuthMethod string
}

// Service is the auth orchestrator.
type Service struct {
	users    storage.UserStorage
	hasher   PasswordHasher
	tokens   TokenCodec
	verifier IdentityVerifier
	policy   lockout.Policy
	clock    func() time.Time
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for lockout and last-login.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLockoutPolicy replaces the default 5 attempts / 30 minutes policy.
func WithLockoutPolicy(p lockout.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// NewService creates the orchestrator. verifier may be nil, in which case
// federated login fails with ErrConfiguration.
func NewService(
	users storage.UserStorage,
	hasher PasswordHasher,
	tokens TokenCodec,
	verifier IdentityVerifier,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		verifier: verifier,
		policy:   lockout.Default(),
		clock:    time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates a local user with a password and no provider linkage.
func (s *Service) Signup(ctx context.Context, email, password string) (*models.User, error) {
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyRegistered
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed up", slog.String("user_id", user.ID))

	return user, nil
}

// LoginLocal checks email and password and issues an access token.
// Every failure is reported as ErrInvalidCredentials.
func (s *Service) LoginLocal(ctx context.Context, email, password string) (*Token, error) {
	now := s.clock()

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "login failed: unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasPassword() {
		s.logger.InfoContext(ctx, "login failed: account has no password", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if s.policy.IsLocked(user, now) {
		s.logger.WarnContext(ctx, "login failed: account locked",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", *user.LockedUntil))
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		err := s.users.RecordLoginFailure(ctx, user, s.policy.MaxAttempts, s.policy.LockDeadline(now))
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, ErrInvalidCredentials
		case err != nil:
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}
		s.logger.InfoContext(ctx, "login failed: wrong password",
			slog.String("user_id", user.ID),
			slog.Int("failed_attempts", user.FailedLoginAttempts))
		return nil, ErrInvalidCredentials
	}

	if err := s.mutateUser(ctx, user, func(u *models.User) bool {
		s.policy.RecordSuccess(u, now)
		return true
	}); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return s.issue(ctx, user, MethodLocal)
}

// LoginFederated verifies an identity assertion, finds or creates the
// matching user and issues an access token tagged with the provider.
func (s *Service) LoginFederated(ctx context.Context, assertion string) (*Token, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("%w: no identity verifier", identity.ErrConfiguration)
	}

	id, err := s.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, err
	}

	provider := s.verifier.Provider()
	now := s.clock()

	user, err := s.users.GetUserByProvider(ctx, provider, id.Subject)
	switch {
	case err == nil:
		if err := s.mutateUser(ctx, user, func(u *models.User) bool {
			u.LastLogin = &now
			return true
		}); err != nil {
			return nil, fmt.Errorf("failed to record login: %w", err)
		}
		return s.issue(ctx, user, provider)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user, err = s.users.GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		user, err = s.link(ctx, user, provider, id, now)
		if err != nil {
			return nil, err
		}
		return s.issue(ctx, user, provider)
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &models.User{
		Email:          id.Email,
		FullName:       id.Name,
		ProfilePicture: id.Picture,
		Provider:       provider,
		ProviderSub:    id.Subject,
		IsActive:       true,
		IsVerified:     id.EmailVerified,
		LastLogin:      &now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) || errors.Is(err, storage.ErrProviderAlreadyLinked) {
			s.logger.WarnContext(ctx, "federated signup lost a race", slog.Any("error", err))
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed up via provider",
		slog.String("user_id", user.ID),
		slog.String("provider", provider))

	return s.issue(ctx, user, provider)
}

// link attaches the provider identity to an existing user. Provider fields
// are set once; a user already linked elsewhere is a conflict.
func (s *Service) link(ctx context.Context, user *models.User, provider string, id *identity.Identity, now time.Time) (*models.User, error) {
	linkedElsewhere := func(u *models.User) bool {
		return u.HasProvider() && (u.Provider != provider || u.ProviderSub != id.Subject)
	}

	conflict := linkedElsewhere(user)
	var err error
	if !conflict {
		err = s.mutateUser(ctx, user, func(u *models.User) bool {
			// a concurrent login may have linked it since we read it
			if conflict = linkedElsewhere(u); conflict {
				return false
			}
			u.Provider = provider
			u.ProviderSub = id.Subject
			if u.FullName == "" {
				u.FullName = id.Name
			}
			if u.ProfilePicture == "" {
				u.ProfilePicture = id.Picture
			}
			if id.EmailVerified {
				u.IsVerified = true
			}
			u.LastLogin = &now
			return true
		})
	}
	if conflict {
		s.logger.WarnContext(ctx, "provider conflict",
			slog.String("user_id", user.ID),
			slog.String("provider", provider))
		return nil, ErrProviderConflict
	}
	if err != nil {
		if errors.Is(err, storage.ErrProviderAlreadyLinked) {
			return nil, ErrProviderConflict
		}
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}

	s.logger.InfoContext(ctx, "provider linked",
		slog.String("user_id", user.ID),
		slog.String("provider", provider))

	return user, nil
}

// Introspect validates an Authorization header value and returns the
// principal of its access token.
func (s *Service) Introspect(header string) (*Principal, error) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return nil, ErrMalformedAuthHeader
	}

	claims, err := s.tokens.DecodeTyped(header[len(bearerPrefix):], jwt.KindAccess)
	if err != nil {
		if errors.Is(err, jwt.ErrWrongTokenType) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return nil, err
	}

	return &Principal{Subject: claims.Subject, AuthMethod: claims.Auth}, nil
}

func (s *Service) issue(ctx context.Context, user *models.User, method string) (*Token, error) {
	token, err := s.tokens.IssueAccess(user.Email, jwt.Extra{Auth: method})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "access token issued",
		slog.String("user_id", user.ID),
		slog.String("auth", method))

	return &Token{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.tokens.AccessTokenTTL(),
	}, nil
}

// mutateUser applies fn and saves the user unless fn reports no change. On a
// version conflict the user is re-read and fn re-applied until the write
// lands or ctx is done, so a concurrent writer never turns into a failure.
// user is updated in place with the saved state.
func (s *Service) mutateUser(ctx context.Context, user *models.User, fn func(*models.User) bool) error {
	current := user
	for attempt := 1; ; attempt++ {
		if !fn(current) {
			return nil
		}
		err := s.users.UpdateUser(ctx, current)
		if err == nil {
			*user = *current
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", err, ctxErr)
		}

		s.logger.DebugContext(ctx, "user version conflict, retrying",
			slog.String("user_id", user.ID),
			slog.Int("attempt", attempt))

		fresh, err := s.users.GetUserByEmail(ctx, current.Email)
		if err != nil {
			return err
		}
		current = fresh
	}
}
