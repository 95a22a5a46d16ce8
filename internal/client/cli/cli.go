// Package cli implements the authctl subcommands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aification/authsvc/internal/client/iocli"
	"github.com/aification/authsvc/internal/client/storage"
	"github.com/aification/authsvc/pkg/api"
)

// APIClient методы сервера, которые использует authctl
type APIClient interface {
	BaseURL() string
	Signup(ctx context.Context, req api.SignupRequest) (*api.SignupResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)
	LoginGoogle(ctx context.Context, credential string) (*api.TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*api.MeResponse, error)
}

// PasswordHasher считает хеш пароля для команды hash
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Cli struct {
	io        iocli.IO
	apiClient APIClient
	sessions  storage.SessionStorage
	hasher    PasswordHasher
	passwords PasswordSource
	clock     func() time.Time
}

// New создает Cli. sessions может быть nil для команд, которым сессия не нужна
func New(io iocli.IO, apiClient APIClient, sessions storage.SessionStorage, hasher PasswordHasher, passwords PasswordSource) *Cli {
	return &Cli{
		io:        io,
		apiClient: apiClient,
		sessions:  sessions,
		hasher:    hasher,
		passwords: passwords,
		clock:     time.Now,
	}
}

// NeedsSession сообщает, открывать ли файл сессии для команды
func NeedsSession(command string) bool {
	switch command {
	case "login", "google", "me", "status", "logout":
		return true
	default:
		return false
	}
}

// Run выполняет команду args[0] с аргументами args[1:]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return fmt.Errorf("no command given")
	}

	command, rest := args[0], args[1:]
	if NeedsSession(command) && c.sessions == nil {
		return fmt.Errorf("command %q needs a session store", command)
	}

	switch command {
	case "signup":
		return c.runSignup(ctx, rest)
	case "login":
		return c.runLogin(ctx, rest)
	case "google":
		return c.runGoogle(ctx, rest)
	case "me":
		return c.runMe(ctx)
	case "status":
		return c.runStatus(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "hash":
		return c.runHash()
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage печатает справку
func (c *Cli) PrintUsage() {
	c.io.Println("authctl - command-line client of the AIFICATION auth service")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  authctl [OPTIONS] COMMAND [ARGS]")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  -version                Show version information")
	c.io.Println("  -server URL             Server URL (default: http://localhost:8000)")
	c.io.Println("  -db PATH                Path to session database (default: authctl.db)")
	c.io.Println("  -password-file PATH     Read the password from a file")
	c.io.Println()
	c.io.Println("Password priority (highest to lowest):")
	c.io.Println("  1. " + PasswordEnvVar + " environment variable")
	c.io.Println("  2. -password-file")
	c.io.Println("  3. Interactive prompt")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  signup <email>          Create an account")
	c.io.Println("  login <email>           Log in with email and password, save the session")
	c.io.Println("  google <id-token>       Log in with a Google ID token, save the session")
	c.io.Println("  me                      Ask the server who the saved token belongs to")
	c.io.Println("  status                  Show the saved session")
	c.io.Println("  logout                  Delete the saved session")
	c.io.Println("  hash                    Print a bcrypt hash of a password")
}

// requireArg возвращает единственный аргумент или запрашивает его
func (c *Cli) requireArg(args []string, prompt string) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("too many arguments")
	}
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	value, err := c.io.ReadInput(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if value == "" {
		return "", fmt.Errorf("%svalue cannot be empty", prompt)
	}
	return value, nil
}
