package cli

import (
	"context"
	"fmt"

	"github.com/aification/authsvc/internal/validation"
	"github.com/aification/authsvc/pkg/api"
)

func (c *Cli) runSignup(ctx context.Context, args []string) error {
	c.io.Println("=== Sign up ===")
	c.io.Println()

	email, err := c.requireArg(args, "Email: ")
	if err != nil {
		return err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	password, err := c.getPassword("Password: ", true)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	resp, err := c.apiClient.Signup(ctx, api.SignupRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ %s\n", resp.Msg)
	c.io.Printf("Email: %s\n", email)
	c.io.Println()
	c.io.Println("Run 'authctl login " + email + "' to start a session.")

	return nil
}
