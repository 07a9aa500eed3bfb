// Package idempotency keeps consumers (the mail publisher, the payment
// webhook) from handling the same event twice when it is redelivered.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/coursevault-backend/pkg/redis"
)

// Guard claims event ids per consumer with SETNX. Keys look like
// cv:idempotency:evt:<consumer>:<event_id>.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim reports whether this call took ownership of eventID for consumer.
// false means another delivery already did.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID string) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release drops a claim so the event can be handled again.
func (g *Guard) Release(ctx context.Context, consumer string, eventID string) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

// Once calls fn for the first delivery of eventID only. A failing fn gives
// the claim back. ran is false when fn was skipped or failed.
func (g *Guard) Once(ctx context.Context, consumer string, eventID string, fn func(context.Context) error) (ran bool, err error) {
	claimed, err := g.Claim(ctx, consumer, eventID)
	if err != nil || !claimed {
		return false, err
	}
	if err := fn(ctx); err != nil {
		return false, errors.Join(err, g.Release(ctx, consumer, eventID))
	}
	return true, nil
}

func (g *Guard) key(consumer string, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
