package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeOutboxStore struct {
	cutoffs    []time.Time
	purged     int64
	backlog    int64
	purgeErr   error
	backlogErr error
}

func (f *fakeOutboxStore) PurgeDelivered(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.purged, f.purgeErr
}

func (f *fakeOutboxStore) Backlog(context.Context) (int64, error) {
	return f.backlog, f.backlogErr
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRetentionJob(t *testing.T, store *fakeOutboxStore, days int) *OutboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        testLogger(),
		DB:            passthroughTx{},
		Repository:    store,
		RetentionDays: days,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestOutboxRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		days int
		want time.Time
	}{
		{days: 7, want: now.Add(-7 * 24 * time.Hour)},
		{days: 0, want: now.Add(-defaultOutboxRetentionDays * 24 * time.Hour)},
	} {
		store := &fakeOutboxStore{purged: 3, backlog: 2}
		job := newRetentionJob(t, store, tc.days)
		job.now = func() time.Time { return now }

		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("days=%d: run: %v", tc.days, err)
		}
		if len(store.cutoffs) != 1 || !store.cutoffs[0].Equal(tc.want) {
			t.Fatalf("days=%d: cutoffs %v, want [%s]", tc.days, store.cutoffs, tc.want)
		}
	}
}

func TestOutboxRetentionSurfacesStoreErrors(t *testing.T) {
	purge := newRetentionJob(t, &fakeOutboxStore{purgeErr: errors.New("db gone")}, 0)
	if err := purge.Run(context.Background()); err == nil {
		t.Fatalf("expected purge error")
	}

	count := newRetentionJob(t, &fakeOutboxStore{backlogErr: errors.New("timeout")}, 0)
	if err := count.Run(context.Background()); err == nil {
		t.Fatalf("expected backlog error")
	}
}

func TestOutboxRetentionToleratesLargeBacklog(t *testing.T) {
	job := newRetentionJob(t, &fakeOutboxStore{backlog: backlogWarnThreshold + 1}, 0)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("large backlog should only warn: %v", err)
	}
}

func TestNewOutboxRetentionJobRequiresDependencies(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}}); err == nil {
		t.Fatalf("expected missing repository error")
	}
}
