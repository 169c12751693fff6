// Package scheduler runs the server's periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"fluidez/internal/logging"
)

// Job is a unit of periodic work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler manages scheduled tasks for the application.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler running in UTC.
func New(log *logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, log: logging.OrNop(log), ctx: ctx, cancel: cancel}
}

// Every registers job to run once per interval, starting at Start. Failures
// are logged and the job keeps its schedule.
func (s *Scheduler) Every(interval time.Duration, name string, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: %s: interval must be positive", name)
	}
	_, err := s.scheduler.Every(interval).Tag(name).Do(func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			s.log.Warn("Scheduled job failed", "job", name, "error", err)
			return
		}
		s.log.Debug("Scheduled job finished", "job", name, "took", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("scheduler: %s: %w", name, err)
	}
	return nil
}

// Start begins running all scheduled jobs without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop cancels running jobs and stops the schedule.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Tags()...)
	}
	return names
}
