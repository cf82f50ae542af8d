package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func hashOf(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func TestRefreshIssueValidate(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("secret-a"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := store.Validate(ctx, "u1", hashOf("secret-a")); err != nil {
		t.Fatalf("Validate with correct hash failed: %v", err)
	}

	record, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.SecretHash != hashOf("secret-a") {
		t.Fatal("stored hash does not match issued hash")
	}
	if record.ExpiresAt <= record.IssuedAt {
		t.Fatal("expiry must be after issuance")
	}
}

func TestRefreshValidateUnknownUser(t *testing.T) {
	_, rdb := newStoreRedis(t)
	store := NewRefreshStore(rdb, "rt")

	err := store.Validate(context.Background(), "ghost", hashOf("whatever"))
	if !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected ErrRefreshNotFound, got %v", err)
	}
}

func TestRefreshMismatchWipesSlot(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("legit"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := store.Validate(ctx, "u1", hashOf("forged")); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch, got %v", err)
	}

	// The mismatch must have revoked the legitimate token as well.
	if err := store.Validate(ctx, "u1", hashOf("legit")); !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected slot wiped after mismatch, got %v", err)
	}
}

func TestRefreshRotate(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("first"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := store.Rotate(ctx, "u1", hashOf("first"), hashOf("second"), time.Hour); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if err := store.Validate(ctx, "u1", hashOf("second")); err != nil {
		t.Fatalf("Validate with rotated hash failed: %v", err)
	}
}

func TestRefreshRotateStaleTokenRevokesSession(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("first"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := store.Rotate(ctx, "u1", hashOf("first"), hashOf("second"), time.Hour); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// Replay of the pre-rotation token: mismatch, and the winner's token
	// dies with it.
	if err := store.Rotate(ctx, "u1", hashOf("first"), hashOf("third"), time.Hour); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch on replay, got %v", err)
	}
	if err := store.Validate(ctx, "u1", hashOf("second")); !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected slot wiped after replay, got %v", err)
	}
}

func TestRefreshTTLExpiry(t *testing.T) {
	mr, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("short"), time.Minute); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := store.Validate(ctx, "u1", hashOf("short")); !errors.Is(err, ErrRefreshNotFound) {
		t.Fatalf("expected ErrRefreshNotFound after TTL, got %v", err)
	}
}

func TestRefreshRevokeIdempotent(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("x"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := store.Revoke(ctx, "u1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := store.Revoke(ctx, "u1"); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
}

func TestRefreshCorruptRecordDeleted(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := rdb.Set(ctx, "rt:u1", "garbage", time.Hour).Err(); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := store.Validate(ctx, "u1", hashOf("x")); !errors.Is(err, ErrRefreshCorrupt) {
		t.Fatalf("expected ErrRefreshCorrupt, got %v", err)
	}
	if rdb.Exists(ctx, "rt:u1").Val() != 0 {
		t.Fatal("corrupt record must be deleted")
	}
}

func TestRefreshIssueOverwritesPriorSession(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewRefreshStore(rdb, "rt")

	if err := store.Issue(ctx, "u1", hashOf("first-login"), time.Hour); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := store.Issue(ctx, "u1", hashOf("second-login"), time.Hour); err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	// Second login retires the first session's token; this reads as
	// mismatch and wipes the slot.
	if err := store.Validate(ctx, "u1", hashOf("first-login")); !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch for retired token, got %v", err)
	}
}
