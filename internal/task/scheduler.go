package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keepstone/keepstone/internal/platform/logger"
)

// ErrSchedulerRunning is returned by Start when the scheduler is already running.
var ErrSchedulerRunning = errors.New("scheduler already running")

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// Interval between two ticks. Defaults to 24 hours when zero.
	Interval time.Duration

	// RunOnStart runs all jobs once immediately after Start.
	RunOnStart bool
}

// DefaultSchedulerConfig returns a SchedulerConfig with a daily interval.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// Scheduler runs registered jobs on a fixed interval until stopped.
type Scheduler struct {
	config   SchedulerConfig
	logger   *slog.Logger
	recorder Recorder

	mu     sync.Mutex
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil recorder disables metrics.
func NewScheduler(config SchedulerConfig, recorder Recorder, logger *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		config:   config,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Register adds a job. Jobs run in registration order.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start begins ticking in a background goroutine. The loop ends when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scheduler started",
		slog.Duration("interval", s.config.Interval),
		slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels the loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		_ = s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every registered job once, in order. A failing or panicking
// job does not prevent the others from running; the returned error joins
// all failures.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	var errs []error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", job.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (err error) {
	log := s.logger.With(
		slog.String("job", job.Name()),
		slog.String("run_id", uuid.New().String()),
	)
	ctx = logger.WithLogger(ctx, log)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
		elapsed := time.Since(start)
		if err != nil {
			log.Error("job failed",
				slog.String("error", err.Error()),
				slog.Duration("elapsed", elapsed))
			s.recorder.JobRun(job.Name(), OutcomeFailure, elapsed)
			return
		}
		log.Info("job completed", slog.Duration("elapsed", elapsed))
		s.recorder.JobRun(job.Name(), OutcomeSuccess, elapsed)
	}()

	log.Debug("job starting")
	return job.Run(ctx)
}
