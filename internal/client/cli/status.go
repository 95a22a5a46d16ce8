package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aification/authsvc/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.io.Println("Status: Not authenticated")
			c.io.Println()
			c.io.Println("Run 'authctl login' to authenticate.")
			return nil
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	now := c.clock()
	if session.Expired(now) {
		c.io.Println("Status: Expired")
	} else {
		c.io.Println("Status: Authenticated")
	}
	c.io.Printf("Server: %s\n", session.ServerURL)
	c.io.Printf("Email: %s\n", session.Email)
	c.io.Printf("Auth method: %s\n", session.AuthMethod)

	if session.ExpiresAt == 0 {
		return nil
	}

	expiresAt := time.Unix(session.ExpiresAt, 0)
	c.io.Printf("Token expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
	if remaining := expiresAt.Sub(now); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Token has expired. Please login again.")
	}

	return nil
}
