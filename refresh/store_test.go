package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRefreshStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "iam", time.Hour)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestInsertOverwritesAndSetsTTL(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, "acc-1", "rt-2"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := mr.Get("iam:rt:acc-1")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != "rt-2" {
		t.Fatalf("expected latest id, got %q", got)
	}
	if ttl := mr.TTL("iam:rt:acc-1"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl in (0, 1h], got %v", ttl)
	}
}

func TestInsertUntilExpiresAtGivenTime(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	now := time.Now()
	mr.SetTime(now)
	expiresAt := now.Add(90 * time.Minute).Truncate(time.Second)

	if err := store.InsertUntil(ctx, "acc-1", "rt-1", expiresAt); err != nil {
		t.Fatalf("insert until: %v", err)
	}
	if got, _ := mr.Get("iam:rt:acc-1"); got != "rt-1" {
		t.Fatalf("expected stored id, got %q", got)
	}
	if ttl := mr.TTL("iam:rt:acc-1"); ttl != expiresAt.Sub(now) {
		t.Fatalf("expected ttl %v, got %v", expiresAt.Sub(now), ttl)
	}

	if err := store.InsertUntil(ctx, "acc-1", "rt-2", time.Now().Add(-time.Second)); err == nil {
		t.Fatal("expected past expiry to be rejected")
	}
	if got, _ := mr.Get("iam:rt:acc-1"); got != "rt-1" {
		t.Fatalf("rejected insert overwrote id: %q", got)
	}
	if err := store.InsertUntil(ctx, "", "rt-1", expiresAt); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestValidateDistinguishesStates(t *testing.T) {
	store, _, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	status, err := store.Validate(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusUnknown {
		t.Fatalf("expected unknown, got %v err=%v", status, err)
	}

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	status, err = store.Validate(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusValid {
		t.Fatalf("expected valid, got %v err=%v", status, err)
	}

	status, err = store.Validate(ctx, "acc-1", "rt-old")
	if err != nil || status != StatusReplayed {
		t.Fatalf("expected replayed, got %v err=%v", status, err)
	}

	// Validate never mutates.
	status, _ = store.Validate(ctx, "acc-1", "rt-1")
	if status != StatusValid {
		t.Fatalf("expected id to survive validate, got %v", status)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	store, _, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Invalidate(ctx, "acc-1"); err != nil {
		t.Fatalf("first invalidate: %v", err)
	}
	if err := store.Invalidate(ctx, "acc-1"); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}

	status, err := store.Validate(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusUnknown {
		t.Fatalf("expected unknown after invalidate, got %v err=%v", status, err)
	}
}

func TestConsumeMatchDeletes(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	status, err := store.Consume(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusValid {
		t.Fatalf("expected valid, got %v err=%v", status, err)
	}
	if mr.Exists("iam:rt:acc-1") {
		t.Fatal("expected key to be consumed")
	}

	status, err = store.Consume(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusUnknown {
		t.Fatalf("expected unknown on second consume, got %v err=%v", status, err)
	}
}

func TestConsumeMismatchForcesNoSession(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-2"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	status, err := store.Consume(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusReplayed {
		t.Fatalf("expected replayed, got %v err=%v", status, err)
	}
	if mr.Exists("iam:rt:acc-1") {
		t.Fatal("expected replay to delete the live id")
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	store, _, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		valid int
	)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			status, err := store.Consume(ctx, "acc-1", "rt-1")
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if status == StatusValid {
				mu.Lock()
				valid++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if valid != 1 {
		t.Fatalf("expected exactly one winner, got %d", valid)
	}
}

func TestEntryExpiresWithTTL(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "acc-1", "rt-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	mr.FastForward(time.Hour + time.Second)

	status, err := store.Validate(ctx, "acc-1", "rt-1")
	if err != nil || status != StatusUnknown {
		t.Fatalf("expected expired id to be unknown, got %v err=%v", status, err)
	}
}

func TestTrackReplayCountsInsideWindow(t *testing.T) {
	store, mr, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := store.TrackReplay(ctx, "acc-1", time.Minute)
		if err != nil {
			t.Fatalf("track replay: %v", err)
		}
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}
	if ttl := mr.TTL("iam:rp:acc-1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected replay window ttl, got %v", ttl)
	}
}

func TestEmptyKeysRejected(t *testing.T) {
	store, _, done := newRefreshStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Insert(ctx, "", "rt"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := store.Validate(ctx, "acc", ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := store.Consume(ctx, "", "rt"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := store.Invalidate(ctx, ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestRedisFailureWrapsUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewStore(rdb, "iam", time.Hour)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.Insert(ctx, "acc-1", "rt-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Consume(ctx, "acc-1", "rt-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
