package password

import (
	"errors"
	"strings"
	"testing"
)

// Low-cost params keep the suite fast; production cost comes from
// DefaultParams.
func fastParams() Params {
	return Params{
		MemoryKB:    8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	encoded, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := h.Verify("correct-horse-battery", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password-entirely", encoded)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	a, _ := h.Hash("correct-horse-battery")
	b, _ := h.Hash("correct-horse-battery")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	if _, err := h.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestVerifyRejectsMangledHash(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$!!!",
	} {
		if _, err := h.Verify("password-attempt", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	encoded, err := weak.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	stale, err := weak.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash failed: %v", err)
	}
	if stale {
		t.Fatal("hash at current params must not need rehash")
	}

	strongParams := fastParams()
	strongParams.Iterations = 3
	strong, err := NewHasher(strongParams)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	stale, err = strong.NeedsRehash(encoded)
	if err != nil {
		t.Fatalf("NeedsRehash failed: %v", err)
	}
	if !stale {
		t.Fatal("hash below current cost must need rehash")
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	p := fastParams()
	p.MemoryKB = 1024
	if _, err := NewHasher(p); err == nil {
		t.Fatal("memory below floor must be rejected")
	}
}

func TestDummyVerifyNeverPanics(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	h.DummyVerify("anything at all")
	h.DummyVerify("")
}
