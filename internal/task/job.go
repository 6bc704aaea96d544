package task

import (
	"context"
	"time"
)

// Job outcomes reported to a Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Job is a unit of periodic work.
type Job interface {
	// Name identifies the job in logs and metrics.
	Name() string

	// Run performs one execution. Errors are logged and counted; they do not
	// stop the scheduler.
	Run(ctx context.Context) error
}

// Recorder observes finished job runs.
type Recorder interface {
	JobRun(job, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) JobRun(string, string, time.Duration) {}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (j JobFunc) Name() string { return j.JobName }

// Run implements Job.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
