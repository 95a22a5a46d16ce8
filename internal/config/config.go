// Package config loads process configuration from the environment once at
// startup. Nothing else in the module reads environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// EnvDevelopment enables permissive CORS and silences the default-secret warning.
	EnvDevelopment = "development"

	// DefaultSecretKey is the fallback signing secret. Never use it in production.
	DefaultSecretKey = "dev_secret_change_me"

	audiencePreviewLen = 28
)

// localOrigins are always allowed outside development.
var localOrigins = []string{
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Config is the resolved process configuration.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseDSN     string
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	GoogleAudiences []string
	GoogleCertsURL  string
	FrontendOrigins []string
}

// rawEnv holds the environment values before fallbacks and list parsing.
type rawEnv struct {
	Env                      string `env:"ENV"`
	ViteEnv                  string `env:"VITE_ENV"`
	HTTPAddr                 string `env:"HTTP_ADDR"                   envDefault:":8000"`
	DatabaseDSN              string `env:"DATABASE_DSN"                envDefault:"file:authsvc.db"`
	SecretKey                string `env:"SECRET_KEY"                  envDefault:"dev_secret_change_me"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`
	RefreshTokenExpireDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS"   envDefault:"7"`
	GoogleClientIDs          string `env:"GOOGLE_CLIENT_IDS"`
	GoogleClientID           string `env:"GOOGLE_CLIENT_ID"`
	GoogleCertsURL           string `env:"GOOGLE_CERTS_URL"            envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	FrontendOrigins          string `env:"FRONTEND_ORIGINS"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	var raw rawEnv
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{
		Env:             firstNonEmpty(raw.Env, raw.ViteEnv, EnvDevelopment),
		HTTPAddr:        raw.HTTPAddr,
		DatabaseDSN:     raw.DatabaseDSN,
		SecretKey:       raw.SecretKey,
		AccessTokenTTL:  time.Duration(raw.AccessTokenExpireMinutes) * time.Minute,
		RefreshTokenTTL: time.Duration(raw.RefreshTokenExpireDays) * 24 * time.Hour,
		GoogleAudiences: splitList(firstNonEmpty(raw.GoogleClientIDs, raw.GoogleClientID)),
		GoogleCertsURL:  raw.GoogleCertsURL,
		FrontendOrigins: splitList(raw.FrontendOrigins),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// UsesDefaultSecret reports whether the signing secret is the built-in one.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}

// CORSOrigins returns the allowed browser origins: any origin in
// development, the local dev servers plus FRONTEND_ORIGINS otherwise.
func (c *Config) CORSOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	origins := make([]string, 0, len(localOrigins)+len(c.FrontendOrigins))
	origins = append(origins, localOrigins...)
	return append(origins, c.FrontendOrigins...)
}

// AudiencePreview returns the accepted audiences shortened for logging.
func (c *Config) AudiencePreview() []string {
	preview := make([]string, 0, len(c.GoogleAudiences))
	for _, aud := range c.GoogleAudiences {
		if len(aud) > audiencePreviewLen {
			aud = aud[:audiencePreviewLen]
		}
		preview = append(preview, aud+"…")
	}
	return preview
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
