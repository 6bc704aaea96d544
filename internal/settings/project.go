package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/redact"
	"github.com/keepstone/keepstone/internal/store"
)

// ProjectResolver serves the project-scoped part of the defaults document,
// with one independent override set per project.
type ProjectResolver struct {
	defaults  DefaultsSource
	projects  store.ProjectStore
	overrides store.ProjectConfigOverrideStore
	recorder  WriteRecorder
	logger    *slog.Logger
}

// NewProjectResolver creates a ProjectResolver.
func NewProjectResolver(
	defaults DefaultsSource,
	projects store.ProjectStore,
	overrides store.ProjectConfigOverrideStore,
	logger *slog.Logger,
	opts ...Option,
) (*ProjectResolver, error) {
	if defaults == nil {
		return nil, errors.New("defaults source cannot be nil")
	}
	if projects == nil {
		return nil, errors.New("project store cannot be nil")
	}
	if overrides == nil {
		return nil, errors.New("project override store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := buildOptions(opts)
	return &ProjectResolver{
		defaults:  defaults,
		projects:  projects,
		overrides: overrides,
		recorder:  o.recorder,
		logger:    logger.With(slog.String("component", "project_settings_resolver")),
	}, nil
}

// WithTx returns a resolver whose stores use tx, so seeding can share a
// transaction with project creation.
func (p *ProjectResolver) WithTx(tx *sql.Tx) *ProjectResolver {
	c := *p
	c.projects = p.projects.WithTx(tx)
	c.overrides = p.overrides.WithTx(tx)
	return &c
}

// ProjectScopedKeys returns every key that holds a per-project value.
func (p *ProjectResolver) ProjectScopedKeys() []string {
	return p.defaults.Defaults().ProjectScopedKeys()
}

// InitializeProject inserts a row with the default value for every
// project-scoped key the project does not have yet. Calling it again is
// harmless. It returns the number of rows added.
func (p *ProjectResolver) InitializeProject(ctx context.Context, projectID int64) (int, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(slog.Int64("project_id", projectID))

	if err := p.ensureProject(ctx, projectID); err != nil {
		return 0, err
	}

	items := p.defaults.Defaults().ProjectItems()
	rows := make([]*domain.ProjectConfigOverride, 0, len(items))
	for _, item := range items {
		text, err := encodeValue(item.Value)
		if err != nil {
			return 0, keyError("seed", item.Key, err)
		}
		rows = append(rows, &domain.ProjectConfigOverride{
			ProjectID:   projectID,
			Key:         item.Key,
			Value:       text,
			Description: Describe(item),
		})
	}

	added, err := p.overrides.InsertMissing(ctx, projectID, rows)
	if err != nil {
		log.Error("failed to seed project settings",
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("%w: seed project %d: %w", ErrPersistence, projectID, err)
	}

	log.Info("project settings initialized", slog.Int("added", added))
	return added, nil
}

// Resolve returns the project's effective configuration: the defaults with
// the project's rows merged on top.
func (p *ProjectResolver) Resolve(ctx context.Context, projectID int64) (map[string]any, error) {
	d := p.defaults.Defaults()
	if err := p.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}

	values, err := p.projectValues(ctx, d, projectID)
	if err != nil {
		return nil, err
	}
	return merge(d, values)
}

// Load is Resolve falling back to the plain defaults on any error.
func (p *ProjectResolver) Load(ctx context.Context, projectID int64) map[string]any {
	tree, err := p.Resolve(ctx, projectID)
	if err != nil {
		logger.FromContextOrDefault(ctx, p.logger).Warn("serving default project settings",
			slog.Int64("project_id", projectID),
			slog.String("error", err.Error()))
		return p.defaults.Defaults().CleanTree()
	}
	return tree
}

// Get returns the project's value for key: its row, else the default, else
// fallback.
func (p *ProjectResolver) Get(ctx context.Context, projectID int64, key string, fallback any) any {
	if v, ok := Lookup(p.Load(ctx, projectID), key); ok {
		return v
	}
	return fallback
}

// Set validates and stores the project's value for a project-scoped key.
func (p *ProjectResolver) Set(ctx context.Context, projectID int64, key string, value any) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.Int64("project_id", projectID),
		slog.String("key", key))

	item, ok := p.defaults.Defaults().Item(key)
	switch {
	case !ok:
		return p.reject(log, keyError("update", key, ErrNotEditable))
	case !item.ProjectScoped:
		return p.reject(log, keyError("update", key, ErrNotProjectScoped))
	case !item.Editable:
		return p.reject(log, keyError("update", key, ErrNotEditable))
	}

	text, err := encodeFor(item, value)
	if err != nil {
		return p.reject(log, keyError("update", key, err))
	}

	if err := p.ensureProject(ctx, projectID); err != nil {
		return p.reject(log, keyError("update", key, err))
	}

	override := &domain.ProjectConfigOverride{
		ProjectID:   projectID,
		Key:         key,
		Value:       text,
		Description: Describe(item),
	}
	err = p.overrides.RunInTransaction(ctx,
		func(ctx context.Context, s store.ProjectConfigOverrideStore) error {
			return s.Upsert(ctx, override)
		})
	if err != nil {
		log.Error("failed to store project settings override",
			slog.String("error", err.Error()))
		p.recorder.SettingsWrite("project", OutcomeFailed)
		return keyError("update", key, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	log.Info("project settings override stored",
		slog.Any("value", redact.SettingValue(key, value)))
	p.recorder.SettingsWrite("project", OutcomeApplied)
	return nil
}

// SetMany applies each entry independently for one project.
func (p *ProjectResolver) SetMany(ctx context.Context, projectID int64, values map[string]any) BatchResult {
	result := newBatchResult()
	for _, key := range sortedKeys(values) {
		result.add(key, p.Set(ctx, projectID, key, values[key]))
	}
	return result
}

func (p *ProjectResolver) projectValues(ctx context.Context, d *Defaults, projectID int64) (map[string]any, error) {
	rows, err := p.overrides.ListByProject(ctx, projectID)
	if err != nil {
		logger.FromContextOrDefault(ctx, p.logger).Error("failed to list project settings",
			slog.Int64("project_id", projectID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: list project %d overrides: %w", ErrPersistence, projectID, err)
	}

	values := make(map[string]any, len(rows))
	for _, row := range rows {
		item, ok := d.Item(row.Key)
		if !ok || !item.ProjectScoped {
			continue
		}
		values[row.Key] = decodeValue(item.Kind, row.Value)
	}
	return values, nil
}

func (p *ProjectResolver) ensureProject(ctx context.Context, projectID int64) error {
	if _, err := p.projects.GetByID(ctx, projectID); err != nil {
		if store.IsNotFoundError(err) {
			return fmt.Errorf("project %d: %w", projectID, err)
		}
		return fmt.Errorf("%w: load project %d: %w", ErrPersistence, projectID, err)
	}
	return nil
}

func (p *ProjectResolver) reject(log *slog.Logger, err error) error {
	log.Warn("project settings update rejected", slog.String("error", err.Error()))
	p.recorder.SettingsWrite("project", OutcomeRejected)
	return err
}
