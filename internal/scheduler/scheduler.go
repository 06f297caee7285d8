// Package scheduler runs periodic jobs such as the all-accounts sync.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pilab-dev/creator-insights/log"
	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	NextRun  time.Time
	LastRun  time.Time
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Scheduler wraps a cron engine. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  log.Logger

	mu   sync.Mutex
	jobs map[string]entry
}

// New creates a scheduler whose job runs are bounded by timeout.
func New(timeout time.Duration, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		timeout: timeout,
		logger:  logger.With(log.Fields{"component": "scheduler"}),
		jobs:    make(map[string]entry),
	}
}

// AddJob registers job under name with a standard five field cron schedule.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if err := s.RunNow(context.Background(), name, job); err != nil {
			s.logger.Error(context.Background(), "Scheduled job failed", err, log.Fields{"job": name})
		}
	}))

	id, err := s.cron.AddJob(schedule, wrapped)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = entry{id: id, schedule: schedule}
	s.mu.Unlock()

	s.logger.Info(context.Background(), "Job scheduled", log.Fields{"job": name, "schedule": schedule})
	return nil
}

// RemoveJob unregisters a job; unknown names are ignored.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[name]; ok {
		s.cron.Remove(e.id)
		delete(s.jobs, name)
	}
}

// RunNow executes job immediately under the scheduler timeout.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info(ctx, "Starting job", log.Fields{"job": name})
	if err := job(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "Job completed", log.Fields{"job": name, "duration": time.Since(start).String()})
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ListJobs returns the registered jobs with their next and previous runs.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		infos = append(infos, JobInfo{Name: name, Schedule: e.schedule, NextRun: ce.Next, LastRun: ce.Prev})
	}
	return infos
}
