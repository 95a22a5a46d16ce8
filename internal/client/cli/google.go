package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runGoogle(ctx context.Context, args []string) error {
	c.io.Println("=== Google login ===")
	c.io.Println()

	credential, err := c.requireArg(args, "Google ID token: ")
	if err != nil {
		return err
	}

	token, err := c.apiClient.LoginGoogle(ctx, credential)
	if err != nil {
		return err
	}

	// email берем у сервера, а не из непроверенного ID token
	me, err := c.apiClient.Me(ctx, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to read account: %w", err)
	}

	return c.saveSession(ctx, me.Email, me.Auth, token)
}
