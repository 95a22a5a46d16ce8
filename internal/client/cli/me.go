package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aification/authsvc/internal/client/api"
	"github.com/aification/authsvc/internal/client/storage"
)

// ErrNotAuthenticated нет сохраненной или действующей сессии
var ErrNotAuthenticated = errors.New("not authenticated, run 'authctl login' first")

func (c *Cli) runMe(ctx context.Context) error {
	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	if session.ServerURL != "" && session.ServerURL != c.apiClient.BaseURL() {
		c.io.Printf("Warning: session was created on %s\n", session.ServerURL)
	}

	me, err := c.apiClient.Me(ctx, session.AccessToken)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w (%s)", ErrNotAuthenticated, statusErr.Detail)
		}
		return err
	}

	c.io.Printf("Email: %s\n", me.Email)
	if me.Auth != "" {
		c.io.Printf("Auth method: %s\n", me.Auth)
	}

	return nil
}
