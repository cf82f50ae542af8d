package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPasswordLen        = 10
)

// ErrPasswordTooShort is returned by Hash for passwords under 10 bytes.
var ErrPasswordTooShort = errors.New("password must be at least 10 bytes")

// Params are the Argon2id cost parameters. Zero values take the defaults
// from DefaultParams.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the second RFC 9106 recommendation (64 MiB, t=3),
// sized for interactive logins.
func DefaultParams() Params {
	return Params{
		MemoryKB:    64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords. Immutable after construction and
// safe for concurrent use.
type Hasher struct {
	params Params

	// Reference hash of an unguessable random value, computed once at
	// construction, so DummyVerify exercises the full argon2 cost.
	dummyHash string
}

func NewHasher(params Params) (*Hasher, error) {
	if params.MemoryKB < minMemoryKB {
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	}
	if params.Iterations < 1 {
		return nil, errors.New("argon2 iterations must be >= 1")
	}
	if params.Parallelism < 1 {
		return nil, errors.New("argon2 parallelism must be >= 1")
	}
	if params.SaltLength < minSaltLength {
		return nil, errors.New("argon2 salt length must be >= 16")
	}
	if params.KeyLength < minKeyLength {
		return nil, errors.New("argon2 key length must be >= 16")
	}

	h := &Hasher{params: params}

	decoy := make([]byte, 24)
	if _, err := rand.Read(decoy); err != nil {
		return nil, err
	}
	dummy, err := h.hashRaw(decoy)
	if err != nil {
		return nil, err
	}
	h.dummyHash = dummy

	return h, nil
}

// Hash derives an Argon2id hash of password and encodes it as a PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	// Raw bytes as provided; no Unicode normalization.
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	return h.hashRaw([]byte(password))
}

func (h *Hasher) hashRaw(password []byte) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		password,
		salt,
		h.params.Iterations,
		h.params.MemoryKB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the stored PHC hash. The compare
// is constant-time in the length of the stored key, not the attempt.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	memoryKB, iterations, parallelism, salt, key, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memoryKB,
		parallelism,
		uint32(len(key)),
	)

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// DummyVerify runs a verification that can never succeed, equalizing the
// cost of the no-such-account path with a real password check.
func (h *Hasher) DummyVerify(password string) {
	_, _ = h.Verify(password, h.dummyHash)
}

// NeedsRehash reports whether the stored hash was produced with weaker
// parameters than currently configured, so the caller can re-hash on the
// next successful login.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	memoryKB, iterations, parallelism, _, key, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	switch {
	case h.params.MemoryKB > memoryKB,
		h.params.Iterations > iterations,
		h.params.Parallelism > parallelism,
		h.params.KeyLength != uint32(len(key)):
		return true, nil
	}
	return false, nil
}

func parsePHC(encoded string) (memoryKB, iterations uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return 0, 0, 0, nil, nil, errors.New("unsupported password hash format")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("unsupported argon2 version")
	}

	var p uint32
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memoryKB, &iterations, &p); err != nil {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
	}
	if memoryKB < minMemoryKB || iterations < 1 || p < 1 || p > 255 {
		return 0, 0, 0, nil, nil, errors.New("invalid argon2 parameters")
	}
	parallelism = uint8(p)

	salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minSaltLength {
		return 0, 0, 0, nil, nil, errors.New("invalid salt")
	}

	key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || uint32(len(key)) < minKeyLength {
		return 0, 0, 0, nil, nil, errors.New("invalid hash")
	}

	return memoryKB, iterations, parallelism, salt, key, nil
}
