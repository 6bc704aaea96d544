// Command keepstonectl administers KeepStone settings, projects and the
// database schema directly against the configured database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepstone/keepstone/internal/config"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/platform/postgres"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/spf13/cobra"
)

// cli holds the state shared by every subcommand.
type cli struct {
	out          io.Writer
	jsonOutput   bool
	defaultsPath string

	logger   *slog.Logger
	db       *sql.DB
	resolver *settings.Resolver
	projects *settings.ProjectResolver

	// connect opens the database and builds the resolvers.
	connect func(ctx context.Context, c *cli) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, connect: connectDatabase}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "keepstonectl <command>",
		Short:        "Administer a KeepStone deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.connect == nil {
				return nil
			}
			return c.connect(cmd.Context(), c)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.db != nil {
				_ = c.db.Close()
			}
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "output as JSON")
	root.PersistentFlags().StringVar(&c.defaultsPath, "defaults", "",
		"path to the settings defaults document (overrides configuration)")

	root.AddGroup(
		&cobra.Group{ID: "settings", Title: "Settings:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	root.AddCommand(newSettingsCmd(c), newProjectCmd(c), newMigrateCmd(c))
	return root
}

// connectDatabase loads configuration the same way the server does.
func connectDatabase(ctx context.Context, c *cli) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.SetupWithWriter(cfg.Server, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	c.logger = log

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	c.db = db

	path := cfg.Settings.DefaultsPath
	if c.defaultsPath != "" {
		path = c.defaultsPath
	}
	defaults, err := settings.NewFileProvider(path, log)
	if err != nil {
		return fmt.Errorf("failed to load settings defaults: %w", err)
	}

	c.resolver, err = settings.NewResolver(defaults, postgres.NewPostgresConfigOverrideStore(db, log), log)
	if err != nil {
		return err
	}
	c.projects, err = settings.NewProjectResolver(
		defaults,
		postgres.NewPostgresProjectStore(db, log),
		postgres.NewPostgresProjectConfigOverrideStore(db, log),
		log,
	)
	return err
}
