// Package main implements the KeepStone API server: the settings and
// project HTTP endpoints plus the scheduled expiry notification job.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepstone/keepstone/internal/config"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/platform/postgres"
	"github.com/keepstone/keepstone/internal/settings"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration command (up, down, status, reset) and exit")
	flag.Parse()

	if err := run(*migrate); err != nil {
		slog.Error("keepstone server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateCmd != "" {
		return runMigrations(ctx, cfg, migrateCmd, log)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database", postgres.MaskURL(cfg.Database.URL)),
		slog.String("defaults_path", cfg.Settings.DefaultsPath))

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	defaults, err := settings.NewFileProvider(cfg.Settings.DefaultsPath, log)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to load settings defaults: %w", err)
	}

	app, err := newApplication(cfg, log, db, defaults)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
