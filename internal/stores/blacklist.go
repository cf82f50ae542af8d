package stores

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrBlacklistRedisUnavailable = errors.New("blacklist redis unavailable")

// BlacklistStore records access tokens invalidated before their natural
// expiry. An entry lives exactly as long as the token it revokes would have,
// so the deny list never outgrows the token lifetime. Tokens are keyed by
// hash: the raw JWT never touches Redis.
type BlacklistStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewBlacklistStore(redisClient redis.UniversalClient, prefix string) *BlacklistStore {
	if prefix == "" {
		prefix = "bl"
	}
	return &BlacklistStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *BlacklistStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// Add revokes the token for its remaining natural lifetime. A non-positive
// TTL means the token is already dead and there is nothing to record.
func (s *BlacklistStore) Add(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, s.key(token), "1", remaining).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token has been explicitly invalidated.
func (s *BlacklistStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return n > 0, nil
}
