package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/keepstone/keepstone/internal/config"
	"github.com/keepstone/keepstone/internal/platform/metrics"
	"github.com/keepstone/keepstone/internal/platform/postgres"
	"github.com/keepstone/keepstone/internal/service"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/task"
)

// application holds the shared dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics         *metrics.Collector
	resolver        *settings.Resolver
	projectResolver *settings.ProjectResolver
	projectService  service.ProjectService
	scheduler       *task.Scheduler
}

// newApplication wires stores, resolvers, services and the scheduler.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	defaults settings.DefaultsSource,
) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.NewCollector(),
	}
	recorder := settings.WithRecorder(app.metrics)

	overrideStore := postgres.NewPostgresConfigOverrideStore(db, logger)
	projectOverrideStore := postgres.NewPostgresProjectConfigOverrideStore(db, logger)
	projectStore := postgres.NewPostgresProjectStore(db, logger)
	artifactStore := postgres.NewPostgresArtifactStore(db, logger)

	var err error
	app.resolver, err = settings.NewResolver(defaults, overrideStore, logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings resolver: %w", err)
	}

	app.projectResolver, err = settings.NewProjectResolver(
		defaults, projectStore, projectOverrideStore, logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create project settings resolver: %w", err)
	}

	app.projectService, err = service.NewProjectService(db, projectStore, app.projectResolver, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create project service: %w", err)
	}

	app.scheduler = task.NewScheduler(task.SchedulerConfig{
		Interval:   cfg.Scheduler.Interval,
		RunOnStart: true,
	}, app.metrics, logger)

	expiryJob, err := task.NewExpiryCheckJob(
		app.resolver,
		artifactStore,
		task.NewLogNotifier(logger),
		task.WithLocation(cfg.Scheduler.Location()),
		task.WithNotificationCounter(app.metrics),
		task.WithWorkerPool(task.NewWorkerPool(task.DefaultWorkerPoolConfig(), logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expiry check job: %w", err)
	}
	app.scheduler.Register(expiryJob)

	logger.Info("application initialized")
	return app, nil
}

// Run seeds the global settings, starts the scheduler and serves HTTP until
// ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if _, err := app.resolver.Initialize(ctx); err != nil {
		// Reads fall back to defaults, so a failed seed does not block startup.
		app.logger.Error("failed to seed settings overrides", slog.String("error", err.Error()))
	}

	if app.config.Scheduler.Enabled {
		if err := app.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		app.logger.Info("scheduler disabled")
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes the database.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		}
	}
}
