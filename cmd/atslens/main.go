package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"atslens/internal/cli"
	"atslens/internal/common"
	"atslens/internal/config"
	"atslens/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to apply Vault secrets")
		os.Exit(1)
	}

	if err := common.ValidateConfiguredFormats(cfg.App.SupportedFormats); err != nil {
		logger.LogError(err, "Invalid output format configuration")
		os.Exit(1)
	}

	logger.Info("Starting atslens",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"parser", cfg.Parser.URL != "")

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
