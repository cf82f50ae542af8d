package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRefreshNotFound         = errors.New("refresh token not found")
	ErrRefreshExpired          = errors.New("refresh token expired")
	ErrRefreshMismatch         = errors.New("refresh token mismatch")
	ErrRefreshCorrupt          = errors.New("refresh record corrupt")
	ErrRefreshRedisUnavailable = errors.New("refresh store redis unavailable")
)

const (
	refreshRecordVersion = 1
	refreshRecordSize    = 1 + 8 + 8 + 32 // version | issuedAt | expiresAt | secret hash
)

const (
	refreshStatusNotFound int64 = 0
	refreshStatusExpired  int64 = 1
	refreshStatusMismatch int64 = 2
	refreshStatusOK       int64 = 3
	refreshStatusCorrupt  int64 = 4
)

// Shared Lua prologue: big-endian int64 reader plus the check sequence that
// Validate and Rotate have in common. A mismatch deletes the entry before
// reporting — one replayed token costs the legitimate session too.
const refreshCheckLua = `
local function read_be64(s, i)
  local v = 0
  for off = 0, 7 do
    local b = string.byte(s, i + off)
    if not b then return nil end
    v = v * 256 + b
  end
  return v
end

local function check(key, provided, now)
  local data = redis.call("GET", key)
  if not data then
    return 0, nil
  end
  if #data ~= 49 or string.byte(data, 1) ~= 1 then
    redis.call("DEL", key)
    return 4, nil
  end
  local expires_at = read_be64(data, 10)
  if not expires_at then
    redis.call("DEL", key)
    return 4, nil
  end
  if expires_at <= now then
    redis.call("DEL", key)
    return 1, nil
  end
  if string.sub(data, 18, 49) ~= provided then
    redis.call("DEL", key)
    return 2, nil
  end
  return 3, data
end
`

var validateRefreshLua = redis.NewScript(refreshCheckLua + `
local status, _ = check(KEYS[1], ARGV[1], tonumber(ARGV[2]))
return status
`)

var rotateRefreshLua = redis.NewScript(refreshCheckLua + `
local status, _ = check(KEYS[1], ARGV[1], tonumber(ARGV[2]))
if status ~= 3 then
  return status
end
redis.call("SET", KEYS[1], ARGV[3], "PX", tonumber(ARGV[4]))
return 3
`)

// RefreshRecord is the stored half of a refresh token. The token string the
// client holds carries the random secret; only its hash lives here.
type RefreshRecord struct {
	IssuedAt   int64
	ExpiresAt  int64
	SecretHash [32]byte
}

// RefreshStore holds at most one valid refresh token per user. Issue
// overwrites unconditionally, which is what bounds live sessions to one per
// user: a second login silently retires the first session's refresh token.
type RefreshStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRefreshStore(redisClient redis.UniversalClient, prefix string) *RefreshStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RefreshStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RefreshStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Issue writes the user's refresh slot, replacing any prior value.
func (s *RefreshStore) Issue(ctx context.Context, userID string, secretHash [32]byte, ttl time.Duration) error {
	now := time.Now()
	record := RefreshRecord{
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
		SecretHash: secretHash,
	}

	encoded, err := encodeRefreshRecord(&record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(userID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return nil
}

// Validate checks the presented secret hash against the stored slot.
// Expired and mismatched entries are deleted as a side effect; a mismatch is
// treated as a theft signal, not a stale client.
func (s *RefreshStore) Validate(ctx context.Context, userID string, providedHash [32]byte) error {
	result, err := validateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		providedHash[:],
		time.Now().Unix(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return refreshStatusError(result)
}

// Rotate atomically replaces the stored hash with nextHash when providedHash
// matches. Two concurrent rotations for the same user cannot both succeed:
// the loser observes the winner's already-written hash as a mismatch.
func (s *RefreshStore) Rotate(
	ctx context.Context,
	userID string,
	providedHash [32]byte,
	nextHash [32]byte,
	ttl time.Duration,
) error {
	now := time.Now()
	next := RefreshRecord{
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
		SecretHash: nextHash,
	}

	encoded, err := encodeRefreshRecord(&next)
	if err != nil {
		return err
	}

	result, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID)},
		providedHash[:],
		now.Unix(),
		encoded,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return refreshStatusError(result)
}

// Revoke deletes the user's refresh slot. Missing entries are not an error.
func (s *RefreshStore) Revoke(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return nil
}

// Get reads the slot without mutating it. Intended for introspection and
// tests, not the request path.
func (s *RefreshStore) Get(ctx context.Context, userID string) (*RefreshRecord, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	record, err := decodeRefreshRecord(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() >= record.ExpiresAt {
		return nil, ErrRefreshExpired
	}
	return record, nil
}

func refreshStatusError(status int64) error {
	switch status {
	case refreshStatusOK:
		return nil
	case refreshStatusNotFound:
		return ErrRefreshNotFound
	case refreshStatusExpired:
		return ErrRefreshExpired
	case refreshStatusMismatch:
		return ErrRefreshMismatch
	case refreshStatusCorrupt:
		return ErrRefreshCorrupt
	default:
		return fmt.Errorf("%w: unknown refresh script status %d", ErrRefreshRedisUnavailable, status)
	}
}

func encodeRefreshRecord(record *RefreshRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(refreshRecordSize)

	buf.WriteByte(refreshRecordVersion)
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeRefreshRecord(data []byte) (*RefreshRecord, error) {
	if len(data) != refreshRecordSize || data[0] != refreshRecordVersion {
		return nil, ErrRefreshCorrupt
	}

	record := &RefreshRecord{
		IssuedAt:  int64(binary.BigEndian.Uint64(data[1:9])),
		ExpiresAt: int64(binary.BigEndian.Uint64(data[9:17])),
	}
	copy(record.SecretHash[:], data[17:])

	return record, nil
}
