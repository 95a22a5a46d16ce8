package cli

import (
	"fmt"
	"os"
	"strings"
)

// PasswordEnvVar переменная окружения с паролем для неинтерактивного запуска
const PasswordEnvVar = "AUTHCTL_PASSWORD"

// PasswordSource источники пароля помимо интерактивного ввода
type PasswordSource struct {
	FromFile string
}

// getPassword retrieves the password with priority:
// 1. Environment variable AUTHCTL_PASSWORD
// 2. File from -password-file
// 3. Interactive prompt, with confirmation when confirm is set
func (c *Cli) getPassword(prompt string, confirm bool) (string, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline
		password := strings.TrimRight(string(content), "\r\n")
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: Interactive prompt
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	if confirm {
		again, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		if again != password {
			return "", fmt.Errorf("passwords do not match")
		}
	}

	return password, nil
}
