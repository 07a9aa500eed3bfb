package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	// backlog above this is logged at warn; the publisher is probably stuck
	backlogWarnThreshold = 1000
)

type outboxStore interface {
	PurgeDelivered(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	Backlog(ctx context.Context) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxStore
	RetentionDays int
}

// OutboxRetentionJob deletes delivered outbox rows older than the retention
// window and reports the undelivered backlog. Pending rows are never deleted.
type OutboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	store     outboxStore
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (*OutboxRetentionJob, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger required")
	case params.DB == nil:
		return nil, errors.New("outbox retention: db required")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &OutboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		store:     params.Repository,
		retention: time.Duration(days) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var purged int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.store.PurgeDelivered(ctx, tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("purge delivered outbox rows: %w", err)
	}

	backlog, err := j.store.Backlog(ctx)
	if err != nil {
		return fmt.Errorf("count outbox backlog: %w", err)
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff.Format(time.RFC3339),
		"purged":  purged,
		"backlog": backlog,
	})
	if backlog > backlogWarnThreshold {
		j.logg.Warn(ctx, "outbox backlog above threshold")
		return nil
	}
	j.logg.Info(ctx, "outbox retention complete")
	return nil
}
