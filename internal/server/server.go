// Package server wires configuration, storage, the auth core and the HTTP
// layer into a runnable service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aification/authsvc/internal/config"
	"github.com/aification/authsvc/internal/crypto"
	"github.com/aification/authsvc/internal/server/auth"
	"github.com/aification/authsvc/internal/server/handlers"
	"github.com/aification/authsvc/internal/server/identity"
	"github.com/aification/authsvc/internal/server/jwt"
	"github.com/aification/authsvc/internal/server/middleware"
	"github.com/aification/authsvc/internal/server/storage"
	"github.com/aification/authsvc/internal/server/storage/postgres"
	"github.com/aification/authsvc/internal/server/storage/sqlite"
)

const (
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
	tokenPurgeInterval = time.Hour
	defaultHashCost    = bcrypt.DefaultCost
)

// Server is the assembled HTTP service.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      storage.Store
	httpServer *http.Server
}

// OpenStore selects the store by DSN: postgres:// and postgresql:// URLs use
// PostgreSQL, anything else is treated as a SQLite path or file: DSN.
func OpenStore(ctx context.Context, dsn string) (storage.Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.New(ctx, dsn)
	}
	return sqlite.New(ctx, dsn)
}

// New opens the store and builds the HTTP handler tree.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	router, err := NewRouter(cfg, store, nil, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// NewRouter builds the auth core on top of store and returns the full
// middleware-wrapped handler. A nil httpClient is used for key fetches with
// the default timeout.
func NewRouter(cfg *config.Config, store storage.UserStorage, httpClient *http.Client, logger *slog.Logger) (http.Handler, error) {
	codec, err := jwt.NewService(jwt.Config{
		Secret:          []byte(cfg.SecretKey),
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	keys := identity.NewJWKSSource(cfg.GoogleCertsURL, httpClient, logger)
	verifier := identity.NewVerifier(keys, cfg.GoogleAudiences, identity.WithLogger(logger))

	authService := auth.NewService(store, crypto.NewHasher(defaultHashCost), codec, verifier, logger)

	authHandler := handlers.NewAuthHandler(logger, authService)
	healthHandler := handlers.NewHealthHandler(logger, cfg.Env)
	requireAuth := middleware.AuthMiddleware(logger, authService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", healthHandler.Root)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /signup", authHandler.Signup)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /auth/google", authHandler.Google)
	mux.Handle("GET /me", requireAuth(http.HandlerFunc(authHandler.Me)))

	// CORS is innermost so preflight responses are logged too
	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(cfg.CORSOrigins())(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return handler, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.logStartup(ctx)

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go s.purgeExpiredTokens(purgeCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "http server listening", slog.String("addr", s.cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) logStartup(ctx context.Context) {
	s.logger.InfoContext(ctx, "starting auth service", slog.String("env", s.cfg.Env))

	if s.cfg.UsesDefaultSecret() && !s.cfg.IsDevelopment() {
		s.logger.WarnContext(ctx, "SECRET_KEY is the built-in development default")
	}

	if len(s.cfg.GoogleAudiences) == 0 {
		s.logger.WarnContext(ctx, "no Google audiences configured, set GOOGLE_CLIENT_ID or GOOGLE_CLIENT_IDS")
		return
	}
	s.logger.InfoContext(ctx, "Google audiences loaded", slog.Any("audiences", s.cfg.AudiencePreview()))
}

func (s *Server) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.store.DeleteExpiredTokens(ctx, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to purge expired refresh tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "purged expired refresh tokens", slog.Int("count", n))
			}
		}
	}
}
