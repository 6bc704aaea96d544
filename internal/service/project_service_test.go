package service_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/service"
	"github.com/keepstone/keepstone/internal/settings"
	"github.com/keepstone/keepstone/internal/settings/settingstest"
	"github.com/keepstone/keepstone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectDefaults = `
type:
  value: [Token, Certificate]
  edit: true
  project_scoped: true
email:
  notification_days:
    value: 14
    edit: true
    project_scoped: true
  host:
    value: localhost
    edit: true
`

type fixture struct {
	svc       service.ProjectService
	mock      sqlmock.Sqlmock
	projects  *settingstest.ProjectStore
	overrides *settingstest.ProjectOverrideStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	defaults, err := settings.ParseDefaults([]byte(projectDefaults))
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	overrides := settingstest.NewProjectOverrideStore()
	projects := settingstest.NewProjectStore(overrides)
	resolver, err := settings.NewProjectResolver(settings.NewStaticProvider(defaults), projects, overrides, logger)
	require.NoError(t, err)

	svc, err := service.NewProjectService(db, projects, resolver, logger)
	require.NoError(t, err)
	return fixture{svc: svc, mock: mock, projects: projects, overrides: overrides}
}

func TestCreateProject_SeedsConfiguration(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	p, err := f.svc.CreateProject(context.Background(), "  payments ", "billing")
	require.NoError(t, err)
	assert.Equal(t, "payments", p.Name)
	assert.NotZero(t, p.ID)

	assert.Equal(t, map[string]string{
		"type":                    `["Token","Certificate"]`,
		"email.notification_days": "14",
	}, f.overrides.Values(p.ID))
}

func TestCreateProject_Errors(t *testing.T) {
	t.Run("invalid name never opens a transaction", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateProject(context.Background(), " ", "")
		assert.ErrorIs(t, err, domain.ErrEmptyProjectName)
	})

	t.Run("duplicate name rolls back", func(t *testing.T) {
		f := newFixture(t)
		f.projects.Add(1, "payments")
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		_, err := f.svc.CreateProject(context.Background(), "payments", "")
		assert.ErrorIs(t, err, store.ErrProjectNameExists)
	})

	t.Run("seeding failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("insert failed")
		f.overrides.Fail(settingstest.OpInsert, boom)
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		_, err := f.svc.CreateProject(context.Background(), "payments", "")
		assert.ErrorIs(t, err, boom)
		var svcErr *service.ProjectServiceError
		assert.ErrorAs(t, err, &svcErr)
	})

	t.Run("begin failure", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		_, err := f.svc.CreateProject(context.Background(), "payments", "")
		assert.ErrorIs(t, err, store.ErrTransactionFailed)
	})
}

func TestProjectQueries(t *testing.T) {
	f := newFixture(t)
	f.projects.Add(2, "zeta")
	f.projects.Add(3, "alpha")
	ctx := context.Background()

	p, err := f.svc.GetProject(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "zeta", p.Name)

	_, err = f.svc.GetProject(ctx, 99)
	assert.ErrorIs(t, err, store.ErrProjectNotFound)

	list, err := f.svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)

	require.NoError(t, f.svc.DeleteProject(ctx, 3))
	assert.ErrorIs(t, f.svc.DeleteProject(ctx, 3), store.ErrProjectNotFound)
}

func TestNewProjectService_Dependencies(t *testing.T) {
	_, err := service.NewProjectService(nil, nil, nil, nil)
	assert.ErrorIs(t, err, service.ErrDependency)
}
