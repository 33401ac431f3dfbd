package paymentwebhook

import (
	"context"
	"sync"
	"testing"
	"time"
)

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "fk:idem:" + scope + ":" + id
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func TestIdempotencyGuardCheckAndMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("first delivery should not be marked seen")
	}

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatal(err)
	}
	if !seen {
		t.Fatal("redelivery should be marked seen")
	}

	// Different events never collide.
	seen, _ = guard.CheckAndMark(ctx, "evt_2")
	if seen {
		t.Fatal("unrelated event must start unseen")
	}
}

func TestIdempotencyGuardConcurrentSingleWinner(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := guard.CheckAndMark(context.Background(), "evt_race")
			if err != nil {
				t.Error(err)
				return
			}
			if !seen {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firsts != 1 {
		t.Fatalf("expected exactly one winner, got %d", firsts)
	}
}

func TestIdempotencyGuardDelete(t *testing.T) {
	guard, err := NewIdempotencyGuard(newInMemoryStore(), time.Minute, "payment-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	ctx := context.Background()

	if _, err := guard.CheckAndMark(ctx, "evt_1"); err != nil {
		t.Fatal(err)
	}
	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatal(err)
	}

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Fatal("deleted event should be reprocessable")
	}
}
