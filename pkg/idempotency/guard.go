package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is the key/value surface the guard needs: an atomic
// "set if absent with TTL". A cross-process backend (Redis) is required for
// multi-instance correctness; MemoryStore only covers single-instance use.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// Guard is the atomic claim-a-key-once primitive. The mark is taken in a
// single conditional set; it is never split into a read followed by a write.
//
// The guard's store is not transactionally coupled to the durable store: a
// crash between TryMark and the corresponding commit can permanently drop
// that one event. Known gap, carried from the source design.
type Guard struct {
	store Store
	scope string
	ttl   time.Duration
}

// NewGuard builds a guard whose marks live under the given scope for ttl.
func NewGuard(store Store, scope string, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, scope: scope, ttl: ttl}, nil
}

// TryMark returns true iff this call is the first to establish the mark
// before expiry. Callers treat false as "already in flight or done".
func (g *Guard) TryMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("idempotency id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return set, nil
}

// Release removes the mark so a failed operation can be retried before the
// TTL lapses.
func (g *Guard) Release(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("idempotency id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, id))
}
