package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	failing := &countingJob{name: "video-sync", err: errors.New("platform down")}
	after := &countingJob{name: "outbox-retention"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, failing, after)

	report, err := svc.runCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.ran != 2 || len(report.failed) != 1 || report.failed[0] != "video-sync" {
		t.Fatalf("unexpected report %+v", report)
	}
	if failing.runs != 1 || after.runs != 1 {
		t.Fatalf("expected each job once, got %d and %d", failing.runs, after.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &countingJob{name: "video-sync"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, job)

	report, err := svc.runCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !report.skipped || job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
	if lock.releases != 0 {
		t.Fatalf("must not release a lock it does not hold")
	}
}

func TestRunCycleReportsLockErrors(t *testing.T) {
	job := &countingJob{name: "video-sync"}
	svc := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, job)

	if _, err := svc.runCycle(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
	if job.runs != 0 {
		t.Fatalf("expected no job runs")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "video-sync"}
	svc := newTestService(t, &fakeLock{}, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestRunCycleStopsOnCanceledContext(t *testing.T) {
	job := &countingJob{name: "video-sync"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.runCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 0 || lock.releases != 1 {
		t.Fatalf("expected no runs and a released lock, runs=%d releases=%d", job.runs, lock.releases)
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(ServiceParams{Registry: NewRegistry(), Lock: &fakeLock{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), Registry: NewRegistry()}); err == nil {
		t.Fatalf("expected lock error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{}}); err == nil {
		t.Fatalf("expected registry error")
	}
}
