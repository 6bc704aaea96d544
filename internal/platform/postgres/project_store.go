package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/store"
)

// PostgresProjectStore implements store.ProjectStore.
type PostgresProjectStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectStore creates a project store on a connection or
// transaction owned by the caller.
func NewPostgresProjectStore(db store.DBTX, logger *slog.Logger) *PostgresProjectStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_store")),
	}
}

var _ store.ProjectStore = (*PostgresProjectStore)(nil)

// Create implements store.ProjectStore.Create.
func (s *PostgresProjectStore) Create(ctx context.Context, project *domain.Project) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := project.Validate(); err != nil {
		log.Warn("project validation failed during create",
			slog.String("name", project.Name),
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO projects (name, description, is_default, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		project.Name, project.Description, project.IsDefault, project.CreatedAt,
	).Scan(&project.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("project name already exists", slog.String("name", project.Name))
			return store.NewStoreError("project", "create", "insert failed", store.ErrProjectNameExists)
		}
		log.Error("failed to create project",
			slog.String("name", project.Name),
			slog.String("error", err.Error()))
		return store.NewStoreError("project", "create", "insert failed", MapError(err))
	}

	log.Info("project created",
		slog.Int64("project_id", project.ID),
		slog.String("name", project.Name))
	return nil
}

// GetByID implements store.ProjectStore.GetByID.
func (s *PostgresProjectStore) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, is_default, created_at
		FROM projects
		WHERE id = $1
	`
	p := &domain.Project{}
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.IsDefault, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("project not found", slog.Int64("project_id", id))
			return nil, fmt.Errorf("%w: id %d", store.ErrProjectNotFound, id)
		}
		log.Error("failed to get project",
			slog.Int64("project_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return p, nil
}

// List implements store.ProjectStore.List.
func (s *PostgresProjectStore) List(ctx context.Context) ([]*domain.Project, error) {
	query := `
		SELECT id, name, description, is_default, created_at
		FROM projects
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list projects",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*domain.Project
	for rows.Next() {
		p := &domain.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsDefault, &p.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return projects, nil
}

// Delete implements store.ProjectStore.Delete. Overrides and artifacts go
// with the project through ON DELETE CASCADE.
func (s *PostgresProjectStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete project",
			slog.Int64("project_id", id),
			slog.String("error", err.Error()))
		return store.NewStoreError("project", "delete", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(res, store.ErrProjectNotFound); err != nil {
		return err
	}

	log.Info("project deleted", slog.Int64("project_id", id))
	return nil
}

// WithTx implements store.ProjectStore.WithTx.
func (s *PostgresProjectStore) WithTx(tx *sql.Tx) store.ProjectStore {
	return &PostgresProjectStore{
		db:     tx,
		logger: s.logger,
	}
}
