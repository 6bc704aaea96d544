package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/keepstone/keepstone/internal/domain"
)

// ArtifactStore defines the interface for artifact persistence.
type ArtifactStore interface {
	// Create saves a new artifact and sets its ID.
	Create(ctx context.Context, artifact *domain.Artifact) error

	// FindExpiring returns artifacts of the given type whose expiry date lies
	// in the half-open range (after, until].
	FindExpiring(ctx context.Context, artifactType string, after, until time.Time) ([]*domain.Artifact, error)

	// WithTx returns a new ArtifactStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ArtifactStore
}
