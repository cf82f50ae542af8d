package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// Opaque token layout: the refresh token carries the owning user id so the
// store key can be derived without a lookup; action tokens carry a random
// record id instead. In both cases the secret half never touches Redis in
// plaintext, only its SHA-256 hash.

const (
	SecretSize   = 32
	actionIDSize = 16
	maxUserIDLen = 255
)

var (
	ErrMalformedToken = errors.New("malformed opaque token")
)

type ActionID [actionIDSize]byte

func NewActionID() (ActionID, error) {
	var id ActionID
	_, err := rand.Read(id[:])
	return id, err
}

func (a ActionID) String() string {
	return base64.RawURLEncoding.EncodeToString(a[:])
}

func ParseActionID(s string) (ActionID, error) {
	var id ActionID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, ErrMalformedToken
	}
	if len(raw) != actionIDSize {
		return id, ErrMalformedToken
	}

	copy(id[:], raw)
	return id, nil
}

func NewSecret() ([SecretSize]byte, error) {
	var secret [SecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashSecret(secret [SecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeRefreshToken packs the owning user id and the random secret into a
// single base64url string: 1-byte id length, id bytes, 32-byte secret.
func EncodeRefreshToken(userID string, secret [SecretSize]byte) (string, error) {
	if userID == "" || len(userID) > maxUserIDLen {
		return "", errors.New("invalid user id length")
	}

	raw := make([]byte, 0, 1+len(userID)+SecretSize)
	raw = append(raw, byte(len(userID)))
	raw = append(raw, userID...)
	raw = append(raw, secret[:]...)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeRefreshToken(token string) (string, [SecretSize]byte, error) {
	var secret [SecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, ErrMalformedToken
	}
	if len(raw) < 1 {
		return "", secret, ErrMalformedToken
	}

	idLen := int(raw[0])
	if idLen == 0 || len(raw) != 1+idLen+SecretSize {
		return "", secret, ErrMalformedToken
	}

	userID := string(raw[1 : 1+idLen])
	copy(secret[:], raw[1+idLen:])

	return userID, secret, nil
}

// EncodeActionToken packs a record id and secret into the single-use token
// string delivered by email.
func EncodeActionToken(id ActionID, secret [SecretSize]byte) string {
	raw := make([]byte, 0, actionIDSize+SecretSize)
	raw = append(raw, id[:]...)
	raw = append(raw, secret[:]...)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeActionToken(token string) (ActionID, [SecretSize]byte, error) {
	var (
		id     ActionID
		secret [SecretSize]byte
	)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, secret, ErrMalformedToken
	}
	if len(raw) != actionIDSize+SecretSize {
		return id, secret, ErrMalformedToken
	}

	copy(id[:], raw[:actionIDSize])
	copy(secret[:], raw[actionIDSize:])

	return id, secret, nil
}
