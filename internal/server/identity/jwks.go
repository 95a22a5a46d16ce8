package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultKeysMaxAge is used when the response carries no max-age.
	DefaultKeysMaxAge = time.Hour
	// minRefetchInterval bounds refetches triggered by an unknown kid.
	minRefetchInterval = time.Minute
	maxJWKSBytes       = 1 << 20
)

// ErrKeyNotFound is returned when no key with the requested id is published.
var ErrKeyNotFound = errors.New("signing key not found")

// JWKSSource fetches and caches a JSON Web Key Set over HTTP. Lookups never
// wait on the network while the cached set is fresh; concurrent refreshes
// share one fetch.
type JWKSSource struct {
	httpClient *http.Client
	logger     *slog.Logger
	clock      func() time.Time
	url        string
	fetches    singleflight.Group

	mu    sync.Mutex
	cache keyCache
}

type keyCache struct {
	keys      *jose.JSONWebKeySet
	expiresAt time.Time
	fetchedAt time.Time
}

func (c keyCache) lookup(kid string) (any, bool) {
	if c.keys == nil {
		return nil, false
	}
	found := c.keys.Key(kid)
	if len(found) == 0 {
		return nil, false
	}
	return found[0].Key, true
}

// NewJWKSSource creates a key source for url. A nil httpClient gets a client
// with a 10 second timeout.
func NewJWKSSource(url string, httpClient *http.Client, logger *slog.Logger) *JWKSSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSSource{
		httpClient: httpClient,
		logger:     logger,
		clock:      time.Now,
		url:        url,
	}
}

// Key returns the public key for kid. The set is refetched when the cached
// copy has expired, or when kid is unknown and the last fetch is older than
// a minute.
func (s *JWKSSource) Key(ctx context.Context, kid string) (any, error) {
	now := s.clock()
	cache := s.snapshot()

	if cache.keys == nil || !now.Before(cache.expiresAt) {
		var err error
		if cache, err = s.refresh(ctx); err != nil {
			return nil, err
		}
	}

	if key, ok := cache.lookup(kid); ok {
		return key, nil
	}

	// key rotation: the provider may have published a new key
	if now.Sub(cache.fetchedAt) >= minRefetchInterval {
		cache, err := s.refresh(ctx)
		if err != nil {
			return nil, err
		}
		if key, ok := cache.lookup(kid); ok {
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

func (s *JWKSSource) snapshot() keyCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache
}

// refresh fetches the set once for all callers waiting on it.
func (s *JWKSSource) refresh(ctx context.Context) (keyCache, error) {
	v, err, _ := s.fetches.Do(s.url, func() (any, error) {
		set, maxAge, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}

		now := s.clock()
		cache := keyCache{keys: set, fetchedAt: now, expiresAt: now.Add(maxAge)}

		s.mu.Lock()
		s.cache = cache
		s.mu.Unlock()

		s.logger.DebugContext(ctx, "jwks refreshed",
			slog.Int("keys", len(set.Keys)),
			slog.Duration("max_age", maxAge))

		return cache, nil
	})
	if err != nil {
		return keyCache{}, err
	}
	return v.(keyCache), nil
}

func (s *JWKSSource) fetch(ctx context.Context) (*jose.JSONWebKeySet, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create jwks request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("failed to fetch jwks: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read jwks: %w", err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, 0, fmt.Errorf("failed to decode jwks: %w", err)
	}

	return &set, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// parseMaxAge extracts max-age from a Cache-Control header value.
func parseMaxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.Trim(value, `"`))
		if err != nil || seconds <= 0 {
			continue
		}
		return time.Duration(seconds) * time.Second
	}
	return DefaultKeysMaxAge
}
