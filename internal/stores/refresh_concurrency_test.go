package stores

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// Concurrent rotations with the same presented hash: at most one may win.
// The losers observe the winner's write as a mismatch, which also wipes the
// slot, so afterwards the slot holds either the winner's hash or nothing.
func TestRefreshRotateConcurrent(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("current"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := hashOf(fmt.Sprintf("next-%d", i))
			if err := store.Rotate(ctx, "u1", hashOf("current"), next, time.Hour); err == nil {
				mu.Lock()
				wins = append(wins, i)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(wins) > 1 {
		t.Fatalf("expected at most one winning rotation, got %d", len(wins))
	}

	// Get reads without the mismatch side effect.
	record, err := store.Get(ctx, "u1")
	switch {
	case err == nil:
		if len(wins) != 1 {
			t.Fatal("slot survived but no rotation reported success")
		}
		if record.SecretHash != hashOf(fmt.Sprintf("next-%d", wins[0])) {
			t.Fatal("surviving hash must belong to the winning rotation")
		}
		// The pre-race token must be spent either way.
		if err := store.Validate(ctx, "u1", hashOf("current")); err == nil {
			t.Fatal("pre-race token must not validate")
		}
	case err == ErrRefreshNotFound:
		// A loser hit after the winner and wiped the slot; acceptable.
	default:
		t.Fatalf("Get failed: %v", err)
	}
}
