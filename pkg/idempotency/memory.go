package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for dev and tests. It satisfies the
// guard's atomicity within one process only; running more than one instance
// against a MemoryStore loses the dedup guarantee, so deployed environments
// use Redis instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]time.Time{}}
}

func (s *MemoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.entries[key]; ok && (expiry.IsZero() || expiry.After(now)) {
		return false, nil
	}
	if ttl > 0 {
		s.entries[key] = now.Add(ttl)
	} else {
		s.entries[key] = time.Time{}
	}
	return true, nil
}

func (s *MemoryStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"tf", "idempotency", scope, id}, ":")
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}
