package settings_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/settings/settingstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) SettingsWrite(scope, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[scope+"/"+outcome]++
}

func newResolver(t *testing.T, doc string, opts ...settings.Option) (*settings.Resolver, *settingstest.OverrideStore) {
	t.Helper()
	overrides := settingstest.NewOverrideStore()
	r, err := settings.NewResolver(settings.NewStaticProvider(mustDefaults(t, doc)), overrides, nil, opts...)
	require.NoError(t, err)
	return r, overrides
}

func TestNewResolver_NilDependencies(t *testing.T) {
	_, err := settings.NewResolver(nil, settingstest.NewOverrideStore(), nil)
	assert.Error(t, err)
	_, err = settings.NewResolver(settings.NewStaticProvider(mustDefaults(t, "")), nil, nil)
	assert.Error(t, err)
}

func TestResolver_WriteReadReset(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t, `
email:
  smtp_port:
    value: 587
    edit: true
`)

	require.NoError(t, r.Set(ctx, "email.smtp_port", 25))
	v, err := r.Lookup(ctx, "email.smtp_port")
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	require.NoError(t, r.Reset(ctx))
	v, err = r.Lookup(ctx, "email.smtp_port")
	require.NoError(t, err)
	assert.Equal(t, 587, v)
}

func TestResolver_OverridePrecedence(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	overrides.Put("email.smtp_server", "mail.internal")
	overrides.Put("backup.keep_backups", "9")

	tree, err := r.Resolve(ctx)
	require.NoError(t, err)

	email := tree["email"].(map[string]any)
	assert.Equal(t, "mail.internal", email["smtp_server"])
	assert.Equal(t, 587, email["smtp_port"], "defaults keep their type")
	assert.Equal(t, "UTC", email["timezone"])
	assert.Equal(t, 9, tree["backup"].(map[string]any)["keep_backups"])
	assert.Equal(t, []any{"Token", "Other"}, tree["type"])

	// Point lookups agree with the full tree.
	for _, key := range []string{"email.smtp_server", "backup.keep_backups", "trim.name", "type"} {
		v, err := r.Lookup(ctx, key)
		require.NoError(t, err)
		want, _ := settings.Lookup(tree, key)
		assert.Equal(t, want, v, key)
	}
}

func TestResolver_IgnoresRowsForNonEditableKeys(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	overrides.Put("trim.name", "99")
	overrides.Put("type", `["Other"]`)
	overrides.Put("removed.key", "x")

	tree, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, tree["trim"].(map[string]any)["name"])
	assert.Equal(t, []any{"Token", "Other"}, tree["type"])
	assert.NotContains(t, tree, "removed")
}

func TestResolver_RejectsNonEditableWrites(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	before := overrides.Values()

	tests := []struct {
		key  string
		want error
	}{
		{"trim.name", settings.ErrNotEditable},
		{"sql_alchemy.db", settings.ErrNotEditable},
		{"email", settings.ErrNotEditable},
		{"nonexistent.key", settings.ErrNotEditable},
		{"type", settings.ErrProjectScoped},
	}
	for _, tc := range tests {
		err := r.Set(ctx, tc.key, "x")
		assert.ErrorIs(t, err, tc.want, tc.key)

		var keyErr *settings.KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, tc.key, keyErr.Key)
	}
	assert.Equal(t, before, overrides.Values(), "rejected writes leave the table unchanged")
}

func TestResolver_MissingKeyFallsBack(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t, defaultsYAML)

	assert.ErrorIs(t, r.Set(ctx, "nonexistent.key", "x"), settings.ErrNotEditable)
	assert.Equal(t, "fallback", r.Get(ctx, "nonexistent.key", "fallback"))
	assert.Equal(t, 14, r.Get(ctx, "email.notification_days", 0))

	_, err := r.Lookup(ctx, "nonexistent.key")
	assert.ErrorIs(t, err, settings.ErrConfigAbsent)
}

func TestResolver_CoercesStrings(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)

	require.NoError(t, r.Set(ctx, "email.smtp_port", "2525"))
	require.NoError(t, r.Set(ctx, "backup.enabled", "TRUE"))
	require.NoError(t, r.Set(ctx, "email.smtp_server", "10.0.0.1"))

	assert.Equal(t, 2525, r.Get(ctx, "email.smtp_port", nil))
	assert.Equal(t, true, r.Get(ctx, "backup.enabled", nil))
	assert.Equal(t, "10.0.0.1", r.Get(ctx, "email.smtp_server", nil))
	assert.Equal(t, "2525", overrides.Values()["email.smtp_port"])

	assert.ErrorIs(t, r.Set(ctx, "email.smtp_port", "abc"), settings.ErrInvalidValue)
	assert.ErrorIs(t, r.Set(ctx, "backup.enabled", "maybe"), settings.ErrInvalidValue)
}

func TestResolver_SetMany(t *testing.T) {
	ctx := context.Background()
	recorder := &countingRecorder{}
	r, _ := newResolver(t, defaultsYAML, settings.WithRecorder(recorder))

	result := r.SetMany(ctx, map[string]any{
		"email.smtp_port":     25,
		"email.smtp_server":   "mail.internal",
		"trim.name":           10,
		"backup.enabled":      "maybe",
		"backup.keep_backups": "7",
	})

	assert.Equal(t, []string{"backup.keep_backups", "email.smtp_port", "email.smtp_server"}, result.Applied)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "backup.enabled", result.Rejected[0].Key)
	assert.Equal(t, "value does not match the setting's type", result.Rejected[0].Reason)
	assert.Equal(t, "trim.name", result.Rejected[1].Key)
	assert.Equal(t, "setting is not editable", result.Rejected[1].Reason)
	assert.False(t, result.OK())

	// Applied keys stay applied even though others failed.
	assert.Equal(t, 25, r.Get(ctx, "email.smtp_port", nil))
	assert.Equal(t, 7, r.Get(ctx, "backup.keep_backups", nil))

	assert.Equal(t, 3, recorder.counts["global/applied"])
	assert.Equal(t, 2, recorder.counts["global/rejected"])
}

func TestResolver_Initialize(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	overrides.Put("email.smtp_port", "2525")

	added, err := r.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	values := overrides.Values()
	assert.Equal(t, "2525", values["email.smtp_port"], "existing rows are not overwritten")
	assert.Equal(t, "smtp.example.com", values["email.smtp_server"])
	assert.Equal(t, "false", values["backup.enabled"])
	assert.NotContains(t, values, "type", "project-scoped keys stay out of the global table")
	assert.NotContains(t, values, "trim.name")

	added, err = r.Initialize(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestResolver_ResetFillsTable(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	require.NoError(t, r.Set(ctx, "email.smtp_port", 25))
	overrides.Put("removed.key", "x")

	require.NoError(t, r.Reset(ctx))

	assert.Equal(t, map[string]string{
		"backup.backup_day":       "sunday",
		"backup.enabled":          "false",
		"backup.keep_backups":     "4",
		"email.notification_days": "14",
		"email.smtp_port":         "587",
		"email.smtp_server":       "smtp.example.com",
	}, overrides.Values())
}

func TestResolver_ResetIsAtomic(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, defaultsYAML)
	require.NoError(t, r.Set(ctx, "email.smtp_port", 25))

	overrides.Fail(settingstest.OpInsert, errors.New("disk full"))
	err := r.Reset(ctx)
	assert.ErrorIs(t, err, settings.ErrPersistence)

	assert.Equal(t, map[string]string{"email.smtp_port": "25"}, overrides.Values())
}

func TestResolver_PersistenceFailures(t *testing.T) {
	ctx := context.Background()
	recorder := &countingRecorder{}
	r, overrides := newResolver(t, defaultsYAML, settings.WithRecorder(recorder))
	require.NoError(t, r.Set(ctx, "email.smtp_port", 25))

	overrides.Fail(settingstest.OpUpsert, errors.New("connection reset"))
	err := r.Set(ctx, "email.smtp_port", 26)
	assert.ErrorIs(t, err, settings.ErrPersistence)
	assert.Equal(t, 1, recorder.counts["global/failed"])

	overrides.Fail(settingstest.OpList, errors.New("connection reset"))
	_, err = r.Resolve(ctx)
	assert.ErrorIs(t, err, settings.ErrPersistence)

	// Readers that cannot handle errors get the defaults.
	assert.Equal(t, 587, r.Get(ctx, "email.smtp_port", nil))
	assert.Equal(t, "UTC", r.Load(ctx)["email"].(map[string]any)["timezone"])

	_, err = r.Initialize(ctx)
	assert.NoError(t, err, "seeding does not list rows")
}

func TestResolver_ListAndMapValues(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, `
storage:
  allowed_extensions:
    value: [png, jpg]
    edit: true
  limits:
    value: {images: 10}
    edit: true
    type: map
`)

	require.NoError(t, r.Set(ctx, "storage.allowed_extensions", "png, gif , webp"))
	assert.Equal(t, `["png","gif","webp"]`, overrides.Values()["storage.allowed_extensions"])
	assert.Equal(t, []any{"png", "gif", "webp"}, r.Get(ctx, "storage.allowed_extensions", nil))

	require.NoError(t, r.Set(ctx, "storage.limits", map[string]any{"images": 20}))
	assert.Equal(t, map[string]any{"images": 20}, r.Get(ctx, "storage.limits", nil))
}

func TestResolver_ReloadDefaults(t *testing.T) {
	r, _ := newResolver(t, defaultsYAML)
	assert.NoError(t, r.ReloadDefaults())
	_, ok := r.Defaults().Item("email.smtp_port")
	assert.True(t, ok)
}

func TestResolver_GetInt(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, `
email:
  notification_days:
    value: 14
    edit: true
  host:
    value: localhost
    edit: true
`)

	assert.Equal(t, 14, r.GetInt(ctx, "email.notification_days", 7))

	overrides.Put("email.notification_days", "30")
	assert.Equal(t, 30, r.GetInt(ctx, "email.notification_days", 7))

	assert.Equal(t, 7, r.GetInt(ctx, "email.host", 7))
	assert.Equal(t, 7, r.GetInt(ctx, "email.missing", 7))
}

func TestResolver_GetString(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, `
email:
  timezone:
    value: UTC
    edit: true
  smtp_port:
    value: 587
    edit: true
`)

	assert.Equal(t, "UTC", r.GetString(ctx, "email.timezone", "Local"))
	overrides.Put("email.timezone", "Europe/Berlin")
	assert.Equal(t, "Europe/Berlin", r.GetString(ctx, "email.timezone", "Local"))
	overrides.Put("email.timezone", "")
	assert.Equal(t, "Local", r.GetString(ctx, "email.timezone", "Local"))

	assert.Equal(t, "Local", r.GetString(ctx, "email.smtp_port", "Local"))
	assert.Equal(t, "Local", r.GetString(ctx, "email.missing", "Local"))
}

func TestResolver_NullDefaultSurvivesSeedAndReset(t *testing.T) {
	ctx := context.Background()
	r, overrides := newResolver(t, `
general:
  banner:
    value: null
    edit: true
`)

	added, err := r.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, "null", overrides.Values()["general.banner"])

	v, err := r.Lookup(ctx, "general.banner")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Set(ctx, "general.banner", "Maintenance tonight"))
	v, err = r.Lookup(ctx, "general.banner")
	require.NoError(t, err)
	assert.Equal(t, "Maintenance tonight", v)

	require.NoError(t, r.Reset(ctx))
	v, err = r.Lookup(ctx, "general.banner")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolver_ItemWithExtraKeysStaysEditable(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t, `
email:
  smtp_port:
    value: 587
    edit: true
    label: Port
`)

	require.NoError(t, r.Set(ctx, "email.smtp_port", 25))
	v, err := r.Lookup(ctx, "email.smtp_port")
	require.NoError(t, err)
	assert.Equal(t, 25, v)
}
