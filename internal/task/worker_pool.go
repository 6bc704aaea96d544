package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// WorkerPool fans a batch of work out to a fixed number of goroutines.
// The expiry job uses it to deliver notifications concurrently.
type WorkerPool struct {
	// workerCount is the number of concurrent workers started per batch
	workerCount int

	// logger for structured logging
	logger *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many goroutines process a batch.
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", config.WorkerCount),
			slog.Int("default_count", 1))
	}

	return &WorkerPool{
		workerCount: workerCount,
		logger:      logger,
	}
}

// Process calls fn once for every index in [0, n) and waits for all calls to
// return. The result holds fn's error for each index. Indexes not yet
// started when ctx is cancelled get ctx.Err(). A panic in fn is reported as
// that index's error.
func (p *WorkerPool) Process(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(p.workerCount, n); w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				errs[i] = p.call(ctx, workerID, i, fn)
			}
		}(w)
	}

	next := 0
feed:
	for ; next < n; next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for ; next < n; next++ {
		errs[next] = ctx.Err()
	}
	return errs
}

func (p *WorkerPool) call(ctx context.Context, workerID, i int, fn func(context.Context, int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker recovered from panic",
				slog.Int("worker_id", workerID),
				slog.Int("item", i),
				slog.Any("panic", r))
			err = fmt.Errorf("panic while processing item %d: %v", i, r)
		}
	}()
	return fn(ctx, i)
}
