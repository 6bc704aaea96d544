package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/keepstone/keepstone/internal/store"
)

const (
	// ExpiryCheckJobName is the job name used in logs and metrics.
	ExpiryCheckJobName = "expiry_check"

	// NotificationDaysKey holds the warning window in days.
	NotificationDaysKey = "email.notification_days"

	// DefaultNotificationDays applies when the key is unset or invalid.
	DefaultNotificationDays = 14

	// TimezoneKey names the IANA zone that defines "today".
	TimezoneKey = "email.timezone"
)

// SettingsReader reads typed settings. *settings.Resolver implements it.
type SettingsReader interface {
	GetInt(ctx context.Context, key string, fallback int) int
	GetString(ctx context.Context, key, fallback string) string
}

// NotificationCounter counts sent notifications.
type NotificationCounter interface {
	NotificationsSent(n int)
}

// ExpiryCheckJob notifies about tokens whose expiry date falls within the
// configured warning window.
type ExpiryCheckJob struct {
	settings  SettingsReader
	artifacts store.ArtifactStore
	notifier  Notifier
	counter   NotificationCounter
	pool      *WorkerPool
	location  *time.Location
	now       func() time.Time
}

// ExpiryCheckOption configures an ExpiryCheckJob.
type ExpiryCheckOption func(*ExpiryCheckJob)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ExpiryCheckOption {
	return func(j *ExpiryCheckJob) { j.now = now }
}

// WithLocation sets the time zone used when the timezone setting is empty
// or unknown.
func WithLocation(loc *time.Location) ExpiryCheckOption {
	return func(j *ExpiryCheckJob) {
		if loc != nil {
			j.location = loc
		}
	}
}

// WithNotificationCounter reports the number of notifications sent per run.
func WithNotificationCounter(c NotificationCounter) ExpiryCheckOption {
	return func(j *ExpiryCheckJob) { j.counter = c }
}

// WithWorkerPool delivers notifications on pool. The notifier must then be
// safe for concurrent use.
func WithWorkerPool(pool *WorkerPool) ExpiryCheckOption {
	return func(j *ExpiryCheckJob) {
		if pool != nil {
			j.pool = pool
		}
	}
}

// NewExpiryCheckJob creates the job. Without WithWorkerPool notifications
// are sent one at a time in expiry order.
func NewExpiryCheckJob(
	settings SettingsReader,
	artifacts store.ArtifactStore,
	notifier Notifier,
	opts ...ExpiryCheckOption,
) (*ExpiryCheckJob, error) {
	if settings == nil || artifacts == nil || notifier == nil {
		return nil, errors.New("expiry check job requires settings, artifacts and notifier")
	}
	j := &ExpiryCheckJob{
		settings:  settings,
		artifacts: artifacts,
		notifier:  notifier,
		pool:      NewWorkerPool(WorkerPoolConfig{WorkerCount: 1}, nil),
		location:  time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Name implements Job.
func (j *ExpiryCheckJob) Name() string { return ExpiryCheckJobName }

// Run implements Job. Each notifier failure is logged and the remaining
// artifacts are still processed.
func (j *ExpiryCheckJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	days := j.settings.GetInt(ctx, NotificationDaysKey, DefaultNotificationDays)
	if days <= 0 {
		log.Warn("invalid notification window, using default",
			slog.Int("configured", days),
			slog.Int("default", DefaultNotificationDays))
		days = DefaultNotificationDays
	}

	loc := j.currentLocation(ctx, log)
	now := j.now().In(loc)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	until := today.AddDate(0, 0, days)

	artifacts, err := j.artifacts.FindExpiring(ctx, domain.ArtifactTypeToken, today, until)
	if err != nil {
		return fmt.Errorf("failed to find expiring artifacts: %w", err)
	}

	results := j.pool.Process(ctx, len(artifacts), func(ctx context.Context, i int) error {
		a := artifacts[i]
		left, _ := a.DaysUntilExpiry(now)
		return j.notifier.NotifyExpiring(ctx, a, left)
	})

	sent := 0
	var errs []error
	for i, err := range results {
		if err != nil {
			log.Error("failed to send expiry notification",
				slog.Int64("artifact_id", artifacts[i].ID),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		sent++
	}

	if j.counter != nil {
		j.counter.NotificationsSent(sent)
	}
	log.Info("expiry check finished",
		slog.Int("window_days", days),
		slog.String("timezone", loc.String()),
		slog.Int("found", len(artifacts)),
		slog.Int("notified", sent))

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d notifications failed: %w", len(errs), len(artifacts), errors.Join(errs...))
	}
	return nil
}

func (j *ExpiryCheckJob) currentLocation(ctx context.Context, log *slog.Logger) *time.Location {
	name := j.settings.GetString(ctx, TimezoneKey, "")
	if name == "" {
		return j.location
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("unknown timezone setting, using configured zone",
			slog.String("configured", name),
			slog.String("fallback", j.location.String()))
		return j.location
	}
	return loc
}
