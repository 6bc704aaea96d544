package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/store"
)

// PostgresArtifactStore implements store.ArtifactStore.
type PostgresArtifactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArtifactStore creates an artifact store.
func NewPostgresArtifactStore(db store.DBTX, logger *slog.Logger) *PostgresArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// Create implements store.ArtifactStore.Create.
func (s *PostgresArtifactStore) Create(ctx context.Context, artifact *domain.Artifact) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := artifact.Validate(); err != nil {
		return err
	}

	var expiry sql.NullTime
	if artifact.ExpiryDate != nil {
		expiry = sql.NullTime{Time: *artifact.ExpiryDate, Valid: true}
	}

	query := `
		INSERT INTO artifacts (project_id, name, used_for, type, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		artifact.ProjectID, artifact.Name, artifact.UsedFor, artifact.Type, expiry, artifact.CreatedAt,
	).Scan(&artifact.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: id %d", store.ErrProjectNotFound, artifact.ProjectID)
		}
		log.Error("failed to create artifact",
			slog.String("name", artifact.Name),
			slog.String("error", err.Error()))
		return store.NewStoreError("artifact", "create", "insert failed", MapError(err))
	}
	return nil
}

// FindExpiring implements store.ArtifactStore.FindExpiring.
func (s *PostgresArtifactStore) FindExpiring(
	ctx context.Context,
	artifactType string,
	after, until time.Time,
) ([]*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, project_id, name, used_for, type, expiry_date, created_at
		FROM artifacts
		WHERE type = $1 AND expiry_date > $2 AND expiry_date <= $3
		ORDER BY expiry_date, id
	`
	rows, err := s.db.QueryContext(ctx, query, artifactType, after, until)
	if err != nil {
		log.Error("failed to query expiring artifacts", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []*domain.Artifact
	for rows.Next() {
		a := &domain.Artifact{}
		var expiry sql.NullTime
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &a.UsedFor, &a.Type, &expiry, &a.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		if expiry.Valid {
			t := expiry.Time
			a.ExpiryDate = &t
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("found expiring artifacts",
		slog.String("type", artifactType),
		slog.Int("count", len(artifacts)))
	return artifacts, nil
}

// WithTx implements store.ArtifactStore.WithTx.
func (s *PostgresArtifactStore) WithTx(tx *sql.Tx) store.ArtifactStore {
	return &PostgresArtifactStore{
		db:     tx,
		logger: s.logger,
	}
}
