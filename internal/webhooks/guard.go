package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brunotavares/sorrisodigital-backend/pkg/redis"
)

// IdempotencyGuard is a Redis fast path in front of the database ledger. It
// short-circuits obvious redeliveries without a round trip to Postgres; the
// ledger claim remains the authoritative dedup.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark reports whether the event was already seen, marking it seen
// otherwise. Event ids are only unique within a provider, so the provider is
// part of the key.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, provider, eventID string) (bool, error) {
	key, err := g.key(provider, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the mark so a provider redelivery is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, provider, eventID string) error {
	key, err := g.key(provider, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(provider, eventID string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, provider+":"+eventID), nil
}
