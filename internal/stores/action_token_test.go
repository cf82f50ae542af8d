package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

func saveAction(t *testing.T, store *ActionTokenStore, id string, purpose ActionPurpose, secret string, ttl time.Duration) {
	t.Helper()

	record := ActionRecord{
		UserID:     "u1",
		Purpose:    purpose,
		ExpiresAt:  time.Now().Add(ttl).Unix(),
		SecretHash: hashOf(secret),
	}
	if err := store.Save(context.Background(), id, &record, ttl); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestActionTokenConsumeOnce(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewActionTokenStore(rdb, "at")

	saveAction(t, store, "tok1", PurposePasswordReset, "secret", time.Hour)

	record, err := store.Consume(ctx, PurposePasswordReset, "tok1", hashOf("secret"))
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if record.UserID != "u1" {
		t.Fatalf("unexpected user id %q", record.UserID)
	}

	// Second redeem of the same token must read as never-existed.
	if _, err := store.Consume(ctx, PurposePasswordReset, "tok1", hashOf("secret")); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound on replay, got %v", err)
	}
}

func TestActionTokenWrongSecretLeavesRecord(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewActionTokenStore(rdb, "at")

	saveAction(t, store, "tok1", PurposePasswordReset, "secret", time.Hour)

	if _, err := store.Consume(ctx, PurposePasswordReset, "tok1", hashOf("guess")); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound for wrong secret, got %v", err)
	}

	// The legitimate token survives the forged attempt.
	if _, err := store.Consume(ctx, PurposePasswordReset, "tok1", hashOf("secret")); err != nil {
		t.Fatalf("legitimate redeem after forged attempt failed: %v", err)
	}
}

func TestActionTokenPurposeBound(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewActionTokenStore(rdb, "at")

	saveAction(t, store, "tok1", PurposePasswordReset, "secret", time.Hour)

	// Same id under the other purpose namespace does not exist.
	if _, err := store.Consume(ctx, PurposeEmailVerify, "tok1", hashOf("secret")); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound across purposes, got %v", err)
	}
}

func TestActionTokenExpiry(t *testing.T) {
	mr, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewActionTokenStore(rdb, "at")

	saveAction(t, store, "tok1", PurposeEmailVerify, "secret", time.Minute)

	mr.FastForward(2 * time.Minute)

	if _, err := store.Consume(ctx, PurposeEmailVerify, "tok1", hashOf("secret")); !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("expected ErrActionNotFound after TTL, got %v", err)
	}
}

func TestActionTokenEmbeddedExpiry(t *testing.T) {
	_, rdb := newStoreRedis(t)
	ctx := context.Background()
	store := NewActionTokenStore(rdb, "at")

	// Redis TTL generous, embedded expiry already past.
	record := ActionRecord{
		UserID:     "u1",
		Purpose:    PurposePasswordReset,
		ExpiresAt:  time.Now().Add(-time.Minute).Unix(),
		SecretHash: hashOf("secret"),
	}
	if err := store.Save(ctx, "tok1", &record, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := store.Consume(ctx, PurposePasswordReset, "tok1", hashOf("secret")); !errors.Is(err, ErrActionExpired) {
		t.Fatalf("expected ErrActionExpired, got %v", err)
	}
}

func TestActionRecordCodecRoundTrip(t *testing.T) {
	record := ActionRecord{
		UserID:     "user-with-a-longer-id",
		Purpose:    PurposeEmailVerify,
		ExpiresAt:  time.Now().Add(time.Hour).Unix(),
		SecretHash: hashOf("s"),
	}

	data, err := encodeActionRecord(&record)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := decodeActionRecord(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *decoded != record {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, record)
	}
}
