package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-studio/internal/config"
	"github.com/heimdex/heimdex-studio/internal/db"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

type commandContext struct {
	dataDirFlag *string
}

func newCommandContext(dataDirFlag *string) *commandContext {
	return &commandContext{dataDirFlag: dataDirFlag}
}

func (c *commandContext) loadConfig() (*config.EnvConfig, error) {
	if c.dataDirFlag != nil {
		if dir := strings.TrimSpace(*c.dataDirFlag); dir != "" {
			if err := os.Setenv(config.EnvDataDir, dir); err != nil {
				return nil, fmt.Errorf("set data dir: %w", err)
			}
		}
	}
	return config.New()
}

// withDatabase opens the library for the duration of fn. The data dir lock
// is held throughout, so studioctl refuses to run next to a live studio.
func (c *commandContext) withDatabase(cmd *cobra.Command, fn func(cfg *config.EnvConfig, database *db.DB, logger *slog.Logger) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("heimdex studio is running (lock held at %s); stop it or use the HTTP API", cfg.LockPath())
	}
	defer lock.Unlock()

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer database.Close()

	return fn(cfg, database, logger)
}

func (c *commandContext) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *studio.Service) error) error {
	return c.withDatabase(cmd, func(cfg *config.EnvConfig, database *db.DB, logger *slog.Logger) error {
		svc := studio.NewService(studio.ServiceConfig{
			Repository:  studio.NewRepository(database.Conn()),
			AspectRatio: cfg.AspectRatio(),
			Logger:      logger,
		})
		return fn(cmd.Context(), svc)
	})
}
