package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStore_Lifecycle(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	if err := s.Create(ctx, "tok-1", 5); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if ttl := mr.TTL("session:tok-1"); ttl <= 0 {
		t.Fatalf("expected TTL on session key, got %v", ttl)
	}

	id, err := s.Get(ctx, "tok-1")
	if err != nil || id != 5 {
		t.Fatalf("expected admin 5, got %d err=%v", id, err)
	}

	if err := s.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "tok-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb, time.Second)
	ctx := context.Background()

	if err := s.Create(ctx, "tok", 1); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := s.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	_ = mr.Set("session:bad", "not-a-number")

	s := NewRedisStore(rdb, time.Minute)
	if _, err := s.Get(context.Background(), "bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ExpiryAndSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Create(ctx, "old", 1)
	now = now.Add(30 * time.Minute)
	_ = s.Create(ctx, "fresh", 2)

	id, err := s.Get(ctx, "old")
	if err != nil || id != 1 {
		t.Fatalf("expected old session valid, got %d err=%v", id, err)
	}

	now = now.Add(31 * time.Minute)

	if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old session expired, got %v", err)
	}

	now = now.Add(30 * time.Minute)
	if removed := s.Sweep(ctx); removed != 1 {
		t.Fatalf("expected 1 swept session, got %d", removed)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	_ = s.Create(ctx, "tok", 9)
	_ = s.Delete(ctx, "tok")
	if _, err := s.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("deleting a missing token should not fail: %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := string(rune('a' + i%26))
			_ = s.Create(ctx, tok, int64(i))
			_, _ = s.Get(ctx, tok)
			s.Sweep(ctx)
		}(i)
	}
	wg.Wait()
}
