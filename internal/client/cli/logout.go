package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aification/authsvc/internal/client/storage"
)

// runLogout удаляет только локальную сессию, сервер токены не отзывает
func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	if err := c.sessions.DeleteSession(ctx); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
