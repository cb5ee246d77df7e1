package services

import (
	"context"
	"fmt"
	"time"

	"github.com/split2ynab/backend/internal/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Job is one unit of work repeated by the scheduler
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	run  Job
}

// Scheduler runs its jobs in order, once or on a fixed interval
type Scheduler struct {
	delay  time.Duration
	logger *logging.Logger
	jobs   []namedJob
}

func NewScheduler(delay time.Duration, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		delay:  delay,
		logger: logger.Named("scheduler"),
	}
}

// Add appends a job. Jobs run in the order they were added.
func (s *Scheduler) Add(name string, job Job) *Scheduler {
	s.jobs = append(s.jobs, namedJob{name: name, run: job})
	return s
}

// RunOnce runs every job once. Each job runs even if an earlier one failed.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	for _, j := range s.jobs {
		if err := s.runJob(ctx, j); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errs
}

// Run repeats RunOnce every delay until ctx is cancelled. Failed iterations
// are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for iteration := 1; ; iteration++ {
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped", zap.Int("iterations", iteration-1))
			return nil
		}

		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error("iteration failed", zap.Int("iteration", iteration), zap.Error(err))
		}
		timer.Reset(s.delay)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j namedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("job", j.name), zap.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.run(ctx)
}
