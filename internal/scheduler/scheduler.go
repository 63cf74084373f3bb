// Package scheduler wires up the cron jobs that keep the service healthy:
// broker rediscovery, stream reclaim and the stale PENDING post reaper.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one periodic task.
type Job struct {
	Name string
	Spec string // cron spec, e.g. "@every 5m"
	Run  func(ctx context.Context) error
}

// Every returns the cron spec for a fixed interval.
func Every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// Scheduler wraps robfig/cron. A job that is still running when its next
// tick fires is skipped, and a panicking job is recovered.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  *slog.Logger
}

// New creates a Scheduler for jobs.
func New(log *slog.Logger, jobs ...Job) *Scheduler {
	logger := cron.PrintfLogger(stdlog())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
		),
		jobs: jobs,
		log:  log,
	}
}

func stdlog() *log.Logger {
	return log.New(os.Stderr, "[scheduler] ", log.LstdFlags)
}

// Start registers every job and starts the scheduler. Each job also runs
// once immediately, without waiting for its first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.Spec, func() { s.run(ctx, j) }); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", j.Name, err)
		}
	}

	s.cron.Start()
	s.log.Info("cron started", "jobs", len(s.jobs))

	for _, j := range s.jobs {
		go s.run(ctx, j)
	}
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Warn("scheduled job failed", "job", j.Name, "err", err)
		return
	}
	s.log.Debug("scheduled job done", "job", j.Name, "took", time.Since(started))
}
