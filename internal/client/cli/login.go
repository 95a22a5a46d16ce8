package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aification/authsvc/internal/client/storage"
	"github.com/aification/authsvc/pkg/api"
)

// authMethodLocal совпадает с claim auth токенов парольного входа
const authMethodLocal = "local"

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.requireArg(args, "Email: ")
	if err != nil {
		return err
	}

	password, err := c.getPassword("Password: ", false)
	if err != nil {
		return err
	}

	token, err := c.apiClient.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	return c.saveSession(ctx, email, authMethodLocal, token)
}

// saveSession сохраняет токен и печатает итог входа
func (c *Cli) saveSession(ctx context.Context, email, method string, token *api.TokenResponse) error {
	session := &storage.Session{
		ServerURL:   c.apiClient.BaseURL(),
		Email:       email,
		AccessToken: token.AccessToken,
		AuthMethod:  method,
	}
	if token.ExpiresIn > 0 {
		session.ExpiresAt = c.clock().Add(time.Duration(token.ExpiresIn) * time.Second).Unix()
	}

	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Email: %s\n", email)
	c.io.Printf("Auth method: %s\n", method)
	if token.ExpiresIn > 0 {
		c.io.Printf("Access token expires in: %s\n", time.Duration(token.ExpiresIn)*time.Second)
	}

	return nil
}
