package store

import (
	"context"
	"database/sql"

	"github.com/keepstone/keepstone/internal/domain"
)

// ConfigOverrideStore persists global configuration overrides.
type ConfigOverrideStore interface {
	// List returns every override row ordered by key.
	List(ctx context.Context) ([]*domain.ConfigOverride, error)

	// Get returns the row for key.
	// Returns ErrConfigOverrideNotFound if no row exists.
	Get(ctx context.Context, key string) (*domain.ConfigOverride, error)

	// Upsert inserts the row or replaces the value and description of the
	// existing row for the same key.
	Upsert(ctx context.Context, override *domain.ConfigOverride) error

	// InsertMissing inserts the rows whose key is not yet present and leaves
	// existing rows untouched. It returns the number of rows inserted.
	InsertMissing(ctx context.Context, overrides []*domain.ConfigOverride) (int, error)

	// DeleteAll removes every row.
	DeleteAll(ctx context.Context) error

	// RunInTransaction runs fn with a store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, s ConfigOverrideStore) error) error

	// WithTx returns a store that uses the provided transaction.
	WithTx(tx *sql.Tx) ConfigOverrideStore
}

// ProjectConfigOverrideStore persists per-project configuration overrides.
type ProjectConfigOverrideStore interface {
	// ListByProject returns the rows of one project ordered by key.
	ListByProject(ctx context.Context, projectID int64) ([]*domain.ProjectConfigOverride, error)

	// Get returns the row for (projectID, key).
	// Returns ErrConfigOverrideNotFound if no row exists.
	Get(ctx context.Context, projectID int64, key string) (*domain.ProjectConfigOverride, error)

	// Upsert inserts the row or replaces the value and description of the
	// existing row for the same (project, key).
	Upsert(ctx context.Context, override *domain.ProjectConfigOverride) error

	// InsertMissing inserts rows for projectID whose key is not yet present.
	// It returns the number of rows inserted.
	InsertMissing(ctx context.Context, projectID int64, overrides []*domain.ProjectConfigOverride) (int, error)

	// RunInTransaction runs fn with a store bound to a single transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, s ProjectConfigOverrideStore) error) error

	// WithTx returns a store that uses the provided transaction.
	WithTx(tx *sql.Tx) ProjectConfigOverrideStore
}
