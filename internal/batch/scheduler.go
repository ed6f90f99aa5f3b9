// Package batch repeats evaluation runs on a cron schedule.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a five-field cron expression or a descriptor like @daily
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// RunFunc performs one scheduled run
type RunFunc func(ctx context.Context) error

// Scheduler fires runs on a schedule. Runs execute on the goroutine that
// called Start, so a run that overruns its slot delays the next one instead
// of overlapping it.
type Scheduler struct {
	schedule cron.Schedule
	logger   *zap.Logger

	mu       sync.Mutex
	lastRun  time.Time
	runs     int
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler for a cron expression
func NewScheduler(expr string, logger *zap.Logger) (*Scheduler, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return NewSchedulerFor(sched, logger), nil
}

// NewSchedulerFor creates a scheduler for an already parsed schedule
func NewSchedulerFor(schedule cron.Schedule, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		schedule: schedule,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// NextRun returns the first activation strictly after the given time
func (s *Scheduler) NextRun(after time.Time) time.Time {
	return s.schedule.Next(after)
}

// LastRun returns when the most recent run finished and how many runs
// have completed
func (s *Scheduler) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.runs
}

// Start blocks, invoking run at every activation until ctx is cancelled or
// Stop is called. Errors from run are logged and do not stop the loop.
func (s *Scheduler) Start(ctx context.Context, run RunFunc) error {
	for {
		next := s.NextRun(time.Now())
		if next.IsZero() {
			return fmt.Errorf("schedule has no future activations")
		}
		s.logger.Info("next scheduled run", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopChan:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		} else {
			s.logger.Info("scheduled run finished", zap.Duration("duration", time.Since(start)))
		}

		s.mu.Lock()
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}
}

// Stop ends the loop once the current run, if any, returns
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
