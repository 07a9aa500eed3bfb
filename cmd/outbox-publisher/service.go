package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db/models"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/registry"
)

const (
	consumerName   = "mail-publisher"
	deliverTimeout = 15 * time.Second
	maxBackoff     = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	ClaimBatch(tx *gorm.DB, limit int) ([]models.OutboxEvent, error)
	MarkDelivered(tx *gorm.DB, id uuid.UUID) error
	MarkDeadLettered(tx *gorm.DB, id uuid.UUID, err error) error
}

type dlqRepository interface {
	Record(tx *gorm.DB, entry models.OutboxDLQ) error
}

type deliverer interface {
	Deliver(ctx context.Context, event models.OutboxEvent) error
}

type onceRunner interface {
	Once(ctx context.Context, consumer, eventID string, fn func(context.Context) error) (bool, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Repository    outboxRepository
	DLQRepository dlqRepository
	Deliverer     deliverer
	Idempotency   onceRunner
	Metrics       *metrics.Metrics
}

// Service drains outbox_events into email. Each row gets one delivery
// attempt; a failure dead-letters it.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	dlq       dlqRepository
	deliverer deliverer
	once      onceRunner
	metrics   *metrics.Metrics
	batchSize int
	poll      time.Duration
}

type outcome string

const (
	outcomeSent         outcome = "sent"
	outcomeDuplicate    outcome = "duplicate"
	outcomeDeadLettered outcome = "failed"
)

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.Repository == nil, "outbox repository"},
		{params.DLQRepository == nil, "dlq repository"},
		{params.Deliverer == nil, "deliverer"},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	outboxCfg := params.Config.Outbox
	s := &Service{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		dlq:       params.DLQRepository,
		deliverer: params.Deliverer,
		once:      params.Idempotency,
		metrics:   params.Metrics,
		batchSize: 50,
		poll:      500 * time.Millisecond,
	}
	if outboxCfg.BatchSize > 0 {
		s.batchSize = outboxCfg.BatchSize
	}
	if outboxCfg.PollIntervalMS > 0 {
		s.poll = time.Duration(outboxCfg.PollIntervalMS) * time.Millisecond
	}
	return s, nil
}

// Run polls until ctx is done. An empty poll waits one interval; a failing
// one backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	delay := backoff{base: s.poll, max: maxBackoff}
	for {
		busy, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = delay.next()
		case busy:
			delay.reset()
		default:
			delay.reset()
			wait = s.poll
		}
		if err := pause(ctx, wait); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}
	}
}

// processBatch reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.ClaimBatch(tx, s.batchSize)
		if err != nil {
			return err
		}
		claimed = len(events) > 0
		for _, event := range events {
			result, err := s.handle(ctx, tx, event)
			if err != nil {
				return err
			}
			s.metrics.OutboxDelivery(string(event.EventType), string(result))
		}
		return nil
	})
	return claimed, err
}

func (s *Service) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	logCtx := s.logg.WithFields(ctx, eventFields(event))

	sent, deliverErr := s.deliver(ctx, event)
	if deliverErr != nil {
		reason := enums.OutboxDLQReasonDeliveryFailed
		if registry.IsPermanent(deliverErr) {
			reason = enums.OutboxDLQReasonDecode
		}
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error_reason": reason,
			"error":        deliverErr.Error(),
		}), "outbox event dead-lettered")
		return outcomeDeadLettered, s.deadLetter(tx, event, reason, deliverErr)
	}

	if err := s.repo.MarkDelivered(tx, event.ID); err != nil {
		return "", fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	if !sent {
		s.logg.Debug(logCtx, "outbox event already delivered")
		return outcomeDuplicate, nil
	}
	s.logg.Info(logCtx, "outbox event delivered")
	return outcomeSent, nil
}

// deliver reports false when another publisher already handled the event.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	send := func(ctx context.Context) error { return s.deliverer.Deliver(ctx, event) }
	if s.once == nil {
		return true, send(ctx)
	}
	return s.once.Once(ctx, consumerName, event.ID.String(), send)
}

func (s *Service) deadLetter(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	err := s.dlq.Record(tx, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount + 1,
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	if err := s.repo.MarkDeadLettered(tx, event.ID, cause); err != nil {
		return fmt.Errorf("mark failed %s: %w", event.ID, err)
	}
	return nil
}

func eventFields(event models.OutboxEvent) map[string]any {
	return map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
	}
}

// backoff doubles from base up to max.
type backoff struct {
	base, max, current time.Duration
}

func (b *backoff) next() time.Duration {
	switch {
	case b.current <= 0:
		b.current = b.base
	case b.current < b.max:
		b.current *= 2
	}
	if b.current > b.max {
		b.current = b.max
	}
	return b.current
}

func (b *backoff) reset() { b.current = 0 }

// pause sleeps d plus jitter. A zero d only checks ctx.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d + rand.N(jitterWindow))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
