package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.Metrics
	Interval time.Duration
}

// Service is the maintenance loop. One cycle per interval, and only the
// replica holding the lock runs it.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
}

// cycleReport summarizes one pass over the registry.
type cycleReport struct {
	skipped bool
	ran     int
	failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	case params.Registry == nil:
		return nil, errors.New("cron: registry required")
	}
	svc := &Service{
		logg:     params.Logger,
		jobs:     params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: defaultInterval,
		now:      time.Now,
	}
	if params.Interval > 0 {
		svc.interval = params.Interval
	}
	return svc, nil
}

// Run starts a cycle right away, then one per interval. Cancellation is a
// clean stop; a deadline is returned.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-timer.C:
		}

		report, err := s.runCycle(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "cron cycle failed", err)
		case !report.skipped:
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"jobs_run":    report.ran,
				"jobs_failed": report.failed,
			}), "cron cycle complete")
		}
		timer.Reset(s.interval)
	}
}

// runCycle runs every job in registration order under the lock. A failing
// job never stops the ones after it; only lock errors and cancellation
// abort the cycle.
func (s *Service) runCycle(ctx context.Context) (cycleReport, error) {
	var report cycleReport
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, err
	}
	if !held {
		s.logg.Debug(ctx, "cron lock held by another worker")
		report.skipped = true
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	for _, job := range s.jobs.Jobs() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.ran++
		if err := s.runJob(ctx, job); err != nil {
			report.failed = append(report.failed, job.Name())
		}
	}
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := s.now()
	err := job.Run(ctx)
	took := s.now().Sub(started)
	s.metrics.JobRun(job.Name(), took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Debug(ctx, "cron job finished")
	return nil
}
