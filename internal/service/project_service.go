package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/store"
)

// ProjectService manages projects together with their configuration.
type ProjectService interface {
	// CreateProject stores a new project and seeds its project-scoped
	// configuration in the same transaction.
	CreateProject(ctx context.Context, name, description string) (*domain.Project, error)

	// GetProject returns a project by ID.
	GetProject(ctx context.Context, id int64) (*domain.Project, error)

	// ListProjects returns all projects ordered by name.
	ListProjects(ctx context.Context) ([]*domain.Project, error)

	// DeleteProject removes a project and, through the store, its overrides.
	DeleteProject(ctx context.Context, id int64) error
}

type projectServiceImpl struct {
	db       store.TxBeginner
	projects store.ProjectStore
	settings *settings.ProjectResolver
	logger   *slog.Logger
}

// NewProjectService creates a ProjectService. db starts the transaction
// that CreateProject shares between the project store and the resolver.
func NewProjectService(
	db store.TxBeginner,
	projects store.ProjectStore,
	resolver *settings.ProjectResolver,
	logger *slog.Logger,
) (ProjectService, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: db", ErrDependency)
	}
	if projects == nil {
		return nil, fmt.Errorf("%w: project store", ErrDependency)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: project settings resolver", ErrDependency)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &projectServiceImpl{
		db:       db,
		projects: projects,
		settings: resolver,
		logger:   logger.With(slog.String("component", "project_service")),
	}, nil
}

func (s *projectServiceImpl) CreateProject(
	ctx context.Context,
	name, description string,
) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	project, err := domain.NewProject(name, description)
	if err != nil {
		log.Debug("invalid project", slog.String("error", err.Error()))
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.projects.WithTx(tx).Create(ctx, project); err != nil {
			return err
		}
		seeded, err := s.settings.WithTx(tx).InitializeProject(ctx, project.ID)
		if err != nil {
			return NewProjectServiceError("create", "failed to seed project configuration", err)
		}
		log.Debug("seeded project configuration",
			slog.Int64("project_id", project.ID),
			slog.Int("rows", seeded))
		return nil
	})
	if err != nil {
		log.Warn("project creation failed",
			slog.String("name", project.Name),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("project created",
		slog.Int64("project_id", project.ID),
		slog.String("name", project.Name))
	return project, nil
}

func (s *projectServiceImpl) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *projectServiceImpl) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

func (s *projectServiceImpl) DeleteProject(ctx context.Context, id int64) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("project deleted", slog.Int64("project_id", id))
	return nil
}
