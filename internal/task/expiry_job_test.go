package task

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSettings map[string]any

func (f fixedSettings) GetInt(_ context.Context, key string, fallback int) int {
	if v, ok := f[key].(int); ok {
		return v
	}
	return fallback
}

func (f fixedSettings) GetString(_ context.Context, key, fallback string) string {
	if v, ok := f[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

type fakeArtifacts struct {
	items       []*domain.Artifact
	err         error
	after       time.Time
	until       time.Time
	queriedType string
}

var _ store.ArtifactStore = (*fakeArtifacts)(nil)

func (f *fakeArtifacts) Create(_ context.Context, a *domain.Artifact) error {
	a.ID = int64(len(f.items) + 1)
	f.items = append(f.items, a)
	return nil
}

func (f *fakeArtifacts) FindExpiring(
	_ context.Context,
	artifactType string,
	after, until time.Time,
) ([]*domain.Artifact, error) {
	f.queriedType, f.after, f.until = artifactType, after, until
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Artifact
	for _, a := range f.items {
		if a.Type != artifactType || a.ExpiryDate == nil {
			continue
		}
		if a.ExpiryDate.After(after) && !a.ExpiryDate.After(until) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArtifacts) WithTx(*sql.Tx) store.ArtifactStore { return f }

type notification struct {
	name     string
	daysLeft int
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []notification
	failFor string
}

func (n *fakeNotifier) NotifyExpiring(_ context.Context, a *domain.Artifact, daysLeft int) error {
	if a.Name == n.failFor {
		return errors.New("mailbox unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{a.Name, daysLeft})
	return nil
}

type countRecorder struct{ total int }

func (c *countRecorder) NotificationsSent(n int) { c.total += n }

func at(t time.Time) *time.Time { return &t }

func newExpiryFixture(t *testing.T, settings SettingsReader) (*ExpiryCheckJob, *fakeArtifacts, *fakeNotifier, *countRecorder) {
	t.Helper()
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	artifacts := &fakeArtifacts{}
	for _, a := range []*domain.Artifact{
		{ProjectID: 1, Name: "expires-today", Type: domain.ArtifactTypeToken, ExpiryDate: at(today)},
		{ProjectID: 1, Name: "in-three-days", Type: domain.ArtifactTypeToken, ExpiryDate: at(today.AddDate(0, 0, 3))},
		{ProjectID: 1, Name: "edge-of-window", Type: domain.ArtifactTypeToken, ExpiryDate: at(today.AddDate(0, 0, 14))},
		{ProjectID: 1, Name: "too-far", Type: domain.ArtifactTypeToken, ExpiryDate: at(today.AddDate(0, 0, 15))},
		{ProjectID: 2, Name: "certificate", Type: "Certificate", ExpiryDate: at(today.AddDate(0, 0, 2))},
		{ProjectID: 2, Name: "no-expiry", Type: domain.ArtifactTypeToken},
	} {
		require.NoError(t, artifacts.Create(context.Background(), a))
	}

	notifier := &fakeNotifier{}
	counter := &countRecorder{}
	job, err := NewExpiryCheckJob(settings, artifacts, notifier,
		WithClock(func() time.Time { return now }),
		WithNotificationCounter(counter))
	require.NoError(t, err)
	return job, artifacts, notifier, counter
}

func TestExpiryCheckJob_DefaultWindow(t *testing.T) {
	job, artifacts, notifier, counter := newExpiryFixture(t, fixedSettings{})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, domain.ArtifactTypeToken, artifacts.queriedType)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), artifacts.after)
	assert.Equal(t, time.Date(2026, 5, 24, 0, 0, 0, 0, time.UTC), artifacts.until)
	assert.Equal(t, []notification{
		{"in-three-days", 3},
		{"edge-of-window", 14},
	}, notifier.sent)
	assert.Equal(t, 2, counter.total)
}

func TestExpiryCheckJob_ConfiguredWindow(t *testing.T) {
	job, _, notifier, _ := newExpiryFixture(t, fixedSettings{NotificationDaysKey: 5})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []notification{{"in-three-days", 3}}, notifier.sent)
}

func TestExpiryCheckJob_InvalidWindowUsesDefault(t *testing.T) {
	job, artifacts, _, _ := newExpiryFixture(t, fixedSettings{NotificationDaysKey: -1})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, artifacts.after.AddDate(0, 0, DefaultNotificationDays), artifacts.until)
}

func TestExpiryCheckJob_TimezoneSetting(t *testing.T) {
	t.Run("setting moves today", func(t *testing.T) {
		job, artifacts, _, _ := newExpiryFixture(t, fixedSettings{TimezoneKey: "Pacific/Auckland"})
		auckland, err := time.LoadLocation("Pacific/Auckland")
		require.NoError(t, err)

		require.NoError(t, job.Run(context.Background()))
		// 15:30 UTC on May 10 is already May 11 in Auckland.
		assert.True(t, artifacts.after.Equal(time.Date(2026, 5, 11, 0, 0, 0, 0, auckland)), artifacts.after)
	})

	t.Run("unknown zone falls back", func(t *testing.T) {
		job, artifacts, _, _ := newExpiryFixture(t, fixedSettings{TimezoneKey: "Mars/Olympus"})

		require.NoError(t, job.Run(context.Background()))
		assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), artifacts.after)
	})
}

func TestExpiryCheckJob_Failures(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		job, artifacts, _, _ := newExpiryFixture(t, fixedSettings{})
		artifacts.err = errors.New("connection refused")

		err := job.Run(context.Background())
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("notifier error keeps going", func(t *testing.T) {
		job, _, notifier, counter := newExpiryFixture(t, fixedSettings{})
		notifier.failFor = "in-three-days"

		err := job.Run(context.Background())
		assert.ErrorContains(t, err, "1 of 2 notifications failed")
		assert.Equal(t, []notification{{"edge-of-window", 14}}, notifier.sent)
		assert.Equal(t, 1, counter.total)
	})
}

func TestExpiryCheckJob_WorkerPool(t *testing.T) {
	job, _, notifier, counter := newExpiryFixture(t, fixedSettings{NotificationDaysKey: 30})
	WithWorkerPool(NewWorkerPool(WorkerPoolConfig{WorkerCount: 3}, discardLogger))(job)

	require.NoError(t, job.Run(context.Background()))
	assert.ElementsMatch(t, []notification{
		{"in-three-days", 3},
		{"edge-of-window", 14},
		{"too-far", 15},
	}, notifier.sent)
	assert.Equal(t, 3, counter.total)
}

func TestNewExpiryCheckJob_RequiresDependencies(t *testing.T) {
	_, err := NewExpiryCheckJob(nil, &fakeArtifacts{}, &fakeNotifier{})
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(discardLogger)
	err := n.NotifyExpiring(context.Background(), &domain.Artifact{ID: 1, Name: "deploy"}, 3)
	assert.NoError(t, err)
}
