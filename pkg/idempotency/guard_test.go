package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "tf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestTryMarkFirstCall(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	guard, err := NewGuard(store, "webhook", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	first, err := guard.TryMark(context.Background(), "github:evt1")
	if err != nil {
		t.Fatalf("TryMark: %v", err)
	}
	if !first {
		t.Fatalf("expected first call to win the mark")
	}
	if store.lastKey != "tf:idempotency:webhook:github:evt1" {
		t.Fatalf("unexpected key %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", store.lastTTL)
	}
}

func TestTryMarkDuplicate(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	guard, err := NewGuard(store, "cmd", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	first, err := guard.TryMark(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("TryMark: %v", err)
	}
	if first {
		t.Fatalf("expected duplicate to lose the mark")
	}
}

func TestTryMarkStoreError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("redis down")}
	guard, err := NewGuard(store, "cmd", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	if _, err := guard.TryMark(context.Background(), "key-1"); err == nil {
		t.Fatalf("expected store error to surface")
	}
}

func TestReleaseDeletesMark(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	guard, err := NewGuard(store, "webhook", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	if err := guard.Release(context.Background(), "github:evt1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != "tf:idempotency:webhook:github:evt1" {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}

func TestNewGuardValidation(t *testing.T) {
	if _, err := NewGuard(nil, "s", time.Hour); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewGuard(&fakeStore{}, "", time.Hour); err == nil {
		t.Fatalf("expected error for empty scope")
	}
	if _, err := NewGuard(&fakeStore{}, "s", -time.Second); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestMemoryStoreExclusivity(t *testing.T) {
	guard, err := NewGuard(NewMemoryStore(), "cmd", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	first, err := guard.TryMark(context.Background(), "k")
	if err != nil {
		t.Fatalf("TryMark: %v", err)
	}
	second, err := guard.TryMark(context.Background(), "k")
	if err != nil {
		t.Fatalf("TryMark: %v", err)
	}
	if !first || second {
		t.Fatalf("expected (true, false), got (%v, %v)", first, second)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	guard, err := NewGuard(NewMemoryStore(), "cmd", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	if first, _ := guard.TryMark(context.Background(), "k"); !first {
		t.Fatalf("expected first mark to win")
	}
	time.Sleep(40 * time.Millisecond)
	if again, _ := guard.TryMark(context.Background(), "k"); !again {
		t.Fatalf("expected mark to win again after TTL expiry")
	}
}

func TestMemoryStoreConcurrentMarks(t *testing.T) {
	guard, err := NewGuard(NewMemoryStore(), "cmd", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := guard.TryMark(context.Background(), "shared")
			if err != nil {
				t.Errorf("TryMark: %v", err)
				return
			}
			wins <- first
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for first := range wins {
		if first {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
