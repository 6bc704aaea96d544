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

// PostgresConfigOverrideStore implements store.ConfigOverrideStore
// on the config_overrides table.
type PostgresConfigOverrideStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresConfigOverrideStore creates a store on a connection or
// transaction owned by the caller. A nil logger falls back to slog.Default.
func NewPostgresConfigOverrideStore(db store.DBTX, logger *slog.Logger) *PostgresConfigOverrideStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresConfigOverrideStore{
		db:     db,
		logger: logger.With(slog.String("component", "config_override_store")),
	}
}

var _ store.ConfigOverrideStore = (*PostgresConfigOverrideStore)(nil)

// List implements store.ConfigOverrideStore.List.
func (s *PostgresConfigOverrideStore) List(ctx context.Context) ([]*domain.ConfigOverride, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, key, value, description, created_at, updated_at
		FROM config_overrides
		ORDER BY key
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list config overrides", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.ConfigOverride
	for rows.Next() {
		o := &domain.ConfigOverride{}
		if err := rows.Scan(&o.ID, &o.Key, &o.Value, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
			log.Error("failed to scan config override", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating config overrides", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("listed config overrides", slog.Int("count", len(result)))
	return result, nil
}

// Get implements store.ConfigOverrideStore.Get.
func (s *PostgresConfigOverrideStore) Get(ctx context.Context, key string) (*domain.ConfigOverride, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, key, value, description, created_at, updated_at
		FROM config_overrides
		WHERE key = $1
	`
	o := &domain.ConfigOverride{}
	err := s.db.QueryRowContext(ctx, query, key).
		Scan(&o.ID, &o.Key, &o.Value, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("config override not found", slog.String("key", key))
			return nil, store.ErrConfigOverrideNotFound
		}
		log.Error("failed to get config override",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return o, nil
}

// Upsert implements store.ConfigOverrideStore.Upsert.
func (s *PostgresConfigOverrideStore) Upsert(ctx context.Context, override *domain.ConfigOverride) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := override.Validate(); err != nil {
		log.Warn("config override validation failed",
			slog.String("key", override.Key),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO config_overrides (key, value, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			description = EXCLUDED.description,
			updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, override.Key, override.Value, override.Description); err != nil {
		log.Error("failed to upsert config override",
			slog.String("key", override.Key),
			slog.String("error", err.Error()))
		return store.NewStoreError("config_override", "upsert", "write failed", MapError(err))
	}

	log.Debug("config override upserted", slog.String("key", override.Key))
	return nil
}

// InsertMissing implements store.ConfigOverrideStore.InsertMissing.
func (s *PostgresConfigOverrideStore) InsertMissing(
	ctx context.Context,
	overrides []*domain.ConfigOverride,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", store.ErrInvalidEntity, o.Key, err)
		}
	}

	query := `
		INSERT INTO config_overrides (key, value, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (key) DO NOTHING
	`
	inserted := 0
	err := inTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, o := range overrides {
			res, err := tx.ExecContext(ctx, query, o.Key, o.Value, o.Description)
			if err != nil {
				return store.NewStoreError("config_override", "insert", o.Key, MapError(err))
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
		log.Error("failed to insert missing config overrides", slog.String("error", err.Error()))
		return 0, err
	}

	log.Debug("inserted missing config overrides",
		slog.Int("inserted", inserted),
		slog.Int("candidates", len(overrides)))
	return inserted, nil
}

// DeleteAll implements store.ConfigOverrideStore.DeleteAll.
func (s *PostgresConfigOverrideStore) DeleteAll(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, `DELETE FROM config_overrides`)
	if err != nil {
		log.Error("failed to delete config overrides", slog.String("error", err.Error()))
		return store.NewStoreError("config_override", "delete", "delete failed", MapError(err))
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Info("deleted config overrides", slog.Int64("count", n))
	}
	return nil
}

// RunInTransaction implements store.ConfigOverrideStore.RunInTransaction.
func (s *PostgresConfigOverrideStore) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, s store.ConfigOverrideStore) error,
) error {
	return inTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

// WithTx implements store.ConfigOverrideStore.WithTx.
func (s *PostgresConfigOverrideStore) WithTx(tx *sql.Tx) store.ConfigOverrideStore {
	return &PostgresConfigOverrideStore{
		db:     tx,
		logger: s.logger,
	}
}
