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

// PostgresProjectConfigOverrideStore implements
// store.ProjectConfigOverrideStore on the project_config_overrides table.
type PostgresProjectConfigOverrideStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProjectConfigOverrideStore creates a store on a connection or
// transaction owned by the caller.
func NewPostgresProjectConfigOverrideStore(
	db store.DBTX,
	logger *slog.Logger,
) *PostgresProjectConfigOverrideStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectConfigOverrideStore{
		db:     db,
		logger: logger.With(slog.String("component", "project_config_override_store")),
	}
}

var _ store.ProjectConfigOverrideStore = (*PostgresProjectConfigOverrideStore)(nil)

const projectOverrideColumns = `id, project_id, key, value, description, created_at, updated_at`

func scanProjectOverride(row interface{ Scan(...any) error }) (*domain.ProjectConfigOverride, error) {
	o := &domain.ProjectConfigOverride{}
	err := row.Scan(&o.ID, &o.ProjectID, &o.Key, &o.Value, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// ListByProject implements store.ProjectConfigOverrideStore.ListByProject.
func (s *PostgresProjectConfigOverrideStore) ListByProject(
	ctx context.Context,
	projectID int64,
) ([]*domain.ProjectConfigOverride, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.Int64("project_id", projectID))

	query := `SELECT ` + projectOverrideColumns + `
		FROM project_config_overrides
		WHERE project_id = $1
		ORDER BY key`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		log.Error("failed to list project config overrides", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.ProjectConfigOverride
	for rows.Next() {
		o, err := scanProjectOverride(rows)
		if err != nil {
			log.Error("failed to scan project config override", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return result, nil
}

// Get implements store.ProjectConfigOverrideStore.Get.
func (s *PostgresProjectConfigOverrideStore) Get(
	ctx context.Context,
	projectID int64,
	key string,
) (*domain.ProjectConfigOverride, error) {
	query := `SELECT ` + projectOverrideColumns + `
		FROM project_config_overrides
		WHERE project_id = $1 AND key = $2`
	o, err := scanProjectOverride(s.db.QueryRowContext(ctx, query, projectID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrConfigOverrideNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get project config override",
			slog.Int64("project_id", projectID),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return o, nil
}

// Upsert implements store.ProjectConfigOverrideStore.Upsert.
// A missing project surfaces as store.ErrProjectNotFound.
func (s *PostgresProjectConfigOverrideStore) Upsert(
	ctx context.Context,
	override *domain.ProjectConfigOverride,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := override.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO project_config_overrides (project_id, key, value, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (project_id, key) DO UPDATE
		SET value = EXCLUDED.value,
			description = EXCLUDED.description,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		override.ProjectID, override.Key, override.Value, override.Description)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("project config override references missing project",
				slog.Int64("project_id", override.ProjectID))
			return fmt.Errorf("%w: id %d", store.ErrProjectNotFound, override.ProjectID)
		}
		log.Error("failed to upsert project config override",
			slog.Int64("project_id", override.ProjectID),
			slog.String("key", override.Key),
			slog.String("error", err.Error()))
		return store.NewStoreError("project_config_override", "upsert", "write failed", MapError(err))
	}
	return nil
}

// InsertMissing implements store.ProjectConfigOverrideStore.InsertMissing.
func (s *PostgresProjectConfigOverrideStore) InsertMissing(
	ctx context.Context,
	projectID int64,
	overrides []*domain.ProjectConfigOverride,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.Int64("project_id", projectID))

	query := `
		INSERT INTO project_config_overrides (project_id, key, value, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (project_id, key) DO NOTHING
	`
	inserted := 0
	err := inTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, o := range overrides {
			o.ProjectID = projectID
			if err := o.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %w", store.ErrInvalidEntity, o.Key, err)
			}
			res, err := tx.ExecContext(ctx, query, projectID, o.Key, o.Value, o.Description)
			if err != nil {
				if IsForeignKeyViolation(err) {
					return fmt.Errorf("%w: id %d", store.ErrProjectNotFound, projectID)
				}
				return store.NewStoreError("project_config_override", "insert", o.Key, MapError(err))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert missing project config overrides", slog.String("error", err.Error()))
		return 0, err
	}

	log.Debug("inserted missing project config overrides", slog.Int("inserted", inserted))
	return inserted, nil
}

// RunInTransaction implements store.ProjectConfigOverrideStore.RunInTransaction.
func (s *PostgresProjectConfigOverrideStore) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, s store.ProjectConfigOverrideStore) error,
) error {
	return inTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

// WithTx implements store.ProjectConfigOverrideStore.WithTx.
func (s *PostgresProjectConfigOverrideStore) WithTx(tx *sql.Tx) store.ProjectConfigOverrideStore {
	return &PostgresProjectConfigOverrideStore{
		db:     tx,
		logger: s.logger,
	}
}
