package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/crypto/bcrypt"

	"github.com/aification/authsvc/internal/client/api"
	"github.com/aification/authsvc/internal/client/cli"
	"github.com/aification/authsvc/internal/client/iocli"
	"github.com/aification/authsvc/internal/client/storage/boltdb"
	"github.com/aification/authsvc/internal/crypto"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8000", "Server URL")
	dbPath := flag.String("db", "authctl.db", "Path to session database")
	passwordFile := flag.String("password-file", "", "Path to file containing the password")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(flag.Args(), *serverURL, *dbPath, *passwordFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, serverURL, dbPath, passwordFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stdio := iocli.NewStdio()
	apiClient := api.NewClient(serverURL)
	hasher := crypto.NewHasher(bcrypt.DefaultCost)
	passwords := cli.PasswordSource{FromFile: passwordFile}

	// Файл сессии открываем только для команд, которым он нужен
	if len(args) == 0 || !cli.NeedsSession(args[0]) {
		return cli.New(stdio, apiClient, nil, hasher, passwords).Run(ctx, args)
	}

	sessions, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	return cli.New(stdio, apiClient, sessions, hasher, passwords).Run(ctx, args)
}

func printVersion() {
	fmt.Printf("authctl\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
