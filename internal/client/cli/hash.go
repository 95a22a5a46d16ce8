package cli

import (
	"fmt"

	"github.com/aification/authsvc/internal/validation"
)

// runHash печатает bcrypt хеш пароля, сервер не нужен
func (c *Cli) runHash() error {
	password, err := c.getPassword("Password: ", true)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return err
	}

	c.io.Println(hash)
	return nil
}
