// Package main provides the collector operator CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/app"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/config"
)

func main() {
	rootCmd := newRootCommand(openService)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openService(ctx context.Context) (operator, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := app.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}
