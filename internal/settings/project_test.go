package settings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/settings/settingstest"
	"github.com/keepstone/keepstone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectFixture struct {
	resolver  *settings.ProjectResolver
	projects  *settingstest.ProjectStore
	overrides *settingstest.ProjectOverrideStore
}

func newProjectFixture(t *testing.T, doc string) projectFixture {
	t.Helper()
	overrides := settingstest.NewProjectOverrideStore()
	projects := settingstest.NewProjectStore(overrides)
	r, err := settings.NewProjectResolver(
		settings.NewStaticProvider(mustDefaults(t, doc)), projects, overrides, nil)
	require.NoError(t, err)
	return projectFixture{resolver: r, projects: projects, overrides: overrides}
}

func TestProjectResolver_Isolation(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, `
type:
  value: [Token, Other]
  edit: true
  project_scoped: true
`)
	f.projects.Add(42, "alpha")
	f.projects.Add(43, "beta")

	_, err := f.resolver.InitializeProject(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []any{"Token", "Other"}, f.resolver.Get(ctx, 42, "type", []any{}))

	require.NoError(t, f.resolver.Set(ctx, 42, "type", []any{"Token"}))
	assert.Equal(t, []any{"Token"}, f.resolver.Get(ctx, 42, "type", []any{}))

	assert.Equal(t, []any{"Token", "Other"}, f.resolver.Get(ctx, 43, "type", []any{}))
}

func TestProjectResolver_InitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)
	f.projects.Add(7, "gamma")

	added, err := f.resolver.InitializeProject(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	first := f.overrides.Values(7)
	assert.Equal(t, map[string]string{
		"default_type": "Token",
		"type":         `["Token","Other"]`,
	}, first)

	for i := 0; i < 3; i++ {
		added, err = f.resolver.InitializeProject(ctx, 7)
		require.NoError(t, err)
		assert.Zero(t, added)
	}
	assert.Equal(t, first, f.overrides.Values(7))
	assert.Equal(t, 2, f.overrides.Len())

	require.NoError(t, f.resolver.Set(ctx, 7, "default_type", "Other"))
	_, err = f.resolver.InitializeProject(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Other", f.overrides.Values(7)["default_type"], "initialization never overwrites")
}

func TestProjectResolver_UnknownProject(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)

	_, err := f.resolver.InitializeProject(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.resolver.Resolve(ctx, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = f.resolver.Set(ctx, 99, "type", "Token")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, f.overrides.Len())

	assert.Equal(t, "Token", f.resolver.Get(ctx, 99, "default_type", "fallback"),
		"reads for unknown projects fall back to defaults")
}

func TestProjectResolver_ScopeChecks(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML+`
fixed:
  value: 1
  project_scoped: true
`)
	f.projects.Add(1, "alpha")

	assert.ErrorIs(t, f.resolver.Set(ctx, 1, "email.smtp_port", 25), settings.ErrNotProjectScoped)
	assert.ErrorIs(t, f.resolver.Set(ctx, 1, "fixed", 2), settings.ErrNotEditable)
	assert.ErrorIs(t, f.resolver.Set(ctx, 1, "nonexistent.key", "x"), settings.ErrNotEditable)
	assert.Zero(t, f.overrides.Len())

	assert.Equal(t, []string{"default_type", "fixed", "type"}, f.resolver.ProjectScopedKeys())
}

func TestProjectResolver_GetFallbacks(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)
	f.projects.Add(5, "delta")

	assert.Equal(t, "Token", f.resolver.Get(ctx, 5, "default_type", "x"), "default without a row")
	assert.Equal(t, "x", f.resolver.Get(ctx, 5, "missing.key", "x"))
	assert.Equal(t, 587, f.resolver.Get(ctx, 5, "email.smtp_port", nil),
		"global defaults are visible in the project tree")
}

func TestProjectResolver_SetManyAndCoercion(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)
	f.projects.Add(3, "epsilon")

	result := f.resolver.SetMany(ctx, 3, map[string]any{
		"type":            "Token, Information",
		"default_type":    "Information",
		"email.smtp_port": 25,
	})
	assert.Equal(t, []string{"default_type", "type"}, result.Applied)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "email.smtp_port", result.Rejected[0].Key)
	assert.Equal(t, "setting cannot be changed per project", result.Rejected[0].Reason)

	tree, err := f.resolver.Resolve(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{"Token", "Information"}, tree["type"])
	assert.Equal(t, "Information", tree["default_type"])
}

func TestProjectResolver_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)
	f.projects.Add(8, "zeta")

	f.overrides.Fail(settingstest.OpUpsert, errors.New("deadlock detected"))
	assert.ErrorIs(t, f.resolver.Set(ctx, 8, "type", "Token"), settings.ErrPersistence)

	f.overrides.Fail(settingstest.OpInsert, errors.New("deadlock detected"))
	_, err := f.resolver.InitializeProject(ctx, 8)
	assert.ErrorIs(t, err, settings.ErrPersistence)

	f.projects.Fail(settingstest.OpGet, errors.New("connection refused"))
	_, err = f.resolver.Resolve(ctx, 8)
	assert.ErrorIs(t, err, settings.ErrPersistence)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestProjectResolver_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t, defaultsYAML)
	f.projects.Add(11, "eta")
	_, err := f.resolver.InitializeProject(ctx, 11)
	require.NoError(t, err)

	require.NoError(t, f.projects.Delete(ctx, 11))
	assert.Empty(t, f.overrides.Values(11))
}
