package store

import (
	"context"
	"database/sql"

	"github.com/keepstone/keepstone/internal/domain"
)

// ProjectStore defines the interface for project persistence.
type ProjectStore interface {
	// Create saves a new project and sets its ID.
	// Returns ErrProjectNameExists if the name is taken.
	Create(ctx context.Context, project *domain.Project) error

	// GetByID retrieves a project by ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Project, error)

	// List returns all projects ordered by name.
	List(ctx context.Context) ([]*domain.Project, error)

	// Delete removes a project. Its configuration overrides and artifacts are
	// removed with it.
	// Returns ErrProjectNotFound if the project does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a new ProjectStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ProjectStore
}
