package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/redact"
	"github.com/keepstone/keepstone/internal/store"
)

// Write outcomes reported to a WriteRecorder.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// WriteRecorder observes settings writes, e.g. to export metrics.
type WriteRecorder interface {
	SettingsWrite(scope, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) SettingsWrite(string, string) {}

// Option configures a resolver.
type Option func(*options)

type options struct {
	recorder WriteRecorder
}

// WithRecorder reports every write outcome to r.
func WithRecorder(r WriteRecorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolver merges the defaults document with the global override table.
type Resolver struct {
	defaults  DefaultsSource
	overrides store.ConfigOverrideStore
	recorder  WriteRecorder
	logger    *slog.Logger
}

// NewResolver creates a Resolver over the given defaults and override store.
func NewResolver(
	defaults DefaultsSource,
	overrides store.ConfigOverrideStore,
	logger *slog.Logger,
	opts ...Option,
) (*Resolver, error) {
	if defaults == nil {
		return nil, errors.New("defaults source cannot be nil")
	}
	if overrides == nil {
		return nil, errors.New("override store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := buildOptions(opts)
	return &Resolver{
		defaults:  defaults,
		overrides: overrides,
		recorder:  o.recorder,
		logger:    logger.With(slog.String("component", "settings_resolver")),
	}, nil
}

// Defaults returns the defaults document currently in force.
func (r *Resolver) Defaults() *Defaults {
	return r.defaults.Defaults()
}

// ReloadDefaults re-reads the defaults document when the source supports it.
func (r *Resolver) ReloadDefaults() error {
	if reloader, ok := r.defaults.(interface{ Reload() error }); ok {
		return reloader.Reload()
	}
	return nil
}

// Initialize inserts an override row for every editable global key that has
// none yet. Existing rows are never touched. It returns the number of rows
// added.
func (r *Resolver) Initialize(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	rows, err := globalSeedRows(r.defaults.Defaults())
	if err != nil {
		return 0, err
	}

	added, err := r.overrides.InsertMissing(ctx, rows)
	if err != nil {
		log.Error("failed to seed settings overrides",
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("%w: seed overrides: %w", ErrPersistence, err)
	}

	if added > 0 {
		log.Info("settings overrides seeded", slog.Int("added", added))
	} else {
		log.Debug("settings overrides up to date")
	}
	return added, nil
}

// Resolve returns the effective configuration: the defaults with every
// override row merged on top.
func (r *Resolver) Resolve(ctx context.Context) (map[string]any, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)
	d := r.defaults.Defaults()

	rows, err := r.overrides.List(ctx)
	if err != nil {
		log.Error("failed to list settings overrides",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: list overrides: %w", ErrPersistence, err)
	}

	values := make(map[string]any, len(rows))
	for _, row := range rows {
		item, ok := d.Item(row.Key)
		if !ok || !item.Editable || item.ProjectScoped {
			log.Warn("ignoring override for key that is not an editable global setting",
				slog.String("key", row.Key))
			continue
		}
		values[row.Key] = decodeValue(item.Kind, row.Value)
	}

	return merge(d, values)
}

// Load is Resolve for callers that cannot handle an error: when the
// override table is unreachable it logs and returns the plain defaults.
func (r *Resolver) Load(ctx context.Context) map[string]any {
	tree, err := r.Resolve(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("serving default settings",
			slog.String("error", err.Error()))
		return r.defaults.Defaults().CleanTree()
	}
	return tree
}

// Lookup returns the effective value of one key. Keys with neither an
// override nor a default yield ErrConfigAbsent.
func (r *Resolver) Lookup(ctx context.Context, key string) (any, error) {
	tree, err := r.Resolve(ctx)
	if err != nil {
		return nil, keyError("read", key, err)
	}
	v, ok := Lookup(tree, key)
	if !ok {
		return nil, keyError("read", key, ErrConfigAbsent)
	}
	return v, nil
}

// Get returns the effective value of key, or fallback when the key is
// unknown.
func (r *Resolver) Get(ctx context.Context, key string, fallback any) any {
	if v, ok := Lookup(r.Load(ctx), key); ok {
		return v
	}
	return fallback
}

// Set validates and stores a global override for key. Strings are parsed
// according to the item's kind.
func (r *Resolver) Set(ctx context.Context, key string, value any) error {
	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.String("key", key))

	item, ok := r.defaults.Defaults().Item(key)
	switch {
	case !ok || !item.Editable:
		return r.reject(log, keyError("update", key, ErrNotEditable))
	case item.ProjectScoped:
		return r.reject(log, keyError("update", key, ErrProjectScoped))
	}

	text, err := encodeFor(item, value)
	if err != nil {
		return r.reject(log, keyError("update", key, err))
	}

	override := &domain.ConfigOverride{
		Key:         key,
		Value:       text,
		Description: Describe(item),
	}
	err = r.overrides.RunInTransaction(ctx, func(ctx context.Context, s store.ConfigOverrideStore) error {
		return s.Upsert(ctx, override)
	})
	if err != nil {
		log.Error("failed to store settings override",
			slog.String("error", err.Error()))
		r.recorder.SettingsWrite("global", OutcomeFailed)
		return keyError("update", key, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	log.Info("settings override stored",
		slog.Any("value", redact.SettingValue(key, value)))
	r.recorder.SettingsWrite("global", OutcomeApplied)
	return nil
}

// SetMany applies each entry independently. A failing key does not undo the
// keys applied before it.
func (r *Resolver) SetMany(ctx context.Context, values map[string]any) BatchResult {
	result := newBatchResult()
	for _, key := range sortedKeys(values) {
		result.add(key, r.Set(ctx, key, values[key]))
	}
	return result
}

// Reset deletes every override and re-seeds a row with the default value for
// each editable global key, in one transaction.
func (r *Resolver) Reset(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	rows, err := globalSeedRows(r.defaults.Defaults())
	if err != nil {
		return err
	}

	err = r.overrides.RunInTransaction(ctx, func(ctx context.Context, s store.ConfigOverrideStore) error {
		if err := s.DeleteAll(ctx); err != nil {
			return err
		}
		_, err := s.InsertMissing(ctx, rows)
		return err
	})
	if err != nil {
		log.Error("failed to reset settings",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: reset overrides: %w", ErrPersistence, err)
	}

	log.Info("settings reset to defaults", slog.Int("rows", len(rows)))
	return nil
}

func (r *Resolver) reject(log *slog.Logger, err error) error {
	log.Warn("settings update rejected", slog.String("error", err.Error()))
	r.recorder.SettingsWrite("global", OutcomeRejected)
	return err
}

func globalSeedRows(d *Defaults) ([]*domain.ConfigOverride, error) {
	items := d.GlobalItems()
	rows := make([]*domain.ConfigOverride, 0, len(items))
	for _, item := range items {
		text, err := encodeValue(item.Value)
		if err != nil {
			return nil, keyError("seed", item.Key, err)
		}
		rows = append(rows, &domain.ConfigOverride{
			Key:         item.Key,
			Value:       text,
			Description: Describe(item),
		})
	}
	return rows, nil
}

func encodeFor(item Item, value any) (string, error) {
	normalized, err := item.Normalize(value)
	if err != nil {
		return "", err
	}
	return encodeValue(normalized)
}

// merge overlays flat override values onto a fresh copy of the defaults.
func merge(d *Defaults, values map[string]any) (map[string]any, error) {
	overrideTree, err := Unflatten(values)
	if err != nil {
		return nil, err
	}
	tree := d.CleanTree()
	DeepMerge(tree, overrideTree)
	return tree, nil
}

// GetInt returns the effective value of key as an int. fallback is returned
// when the key is unknown or its value is not a whole number.
func (r *Resolver) GetInt(ctx context.Context, key string, fallback int) int {
	if n, ok := toInt(r.Get(ctx, key, nil)); ok {
		return n
	}
	return fallback
}

// GetString returns the effective value of key when it is a non-empty
// string, and fallback otherwise.
func (r *Resolver) GetString(ctx context.Context, key, fallback string) string {
	if s, ok := r.Get(ctx, key, nil).(string); ok && s != "" {
		return s
	}
	return fallback
}
