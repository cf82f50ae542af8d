package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCsrfNotFound         = errors.New("csrf token not found")
	ErrCsrfRedisUnavailable = errors.New("csrf store redis unavailable")
)

// CsrfStore keeps the single anti-forgery value per authenticated user.
// Set overwrites, so each fresh login retires the previous value.
type CsrfStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCsrfStore(redisClient redis.UniversalClient, prefix string) *CsrfStore {
	if prefix == "" {
		prefix = "cs"
	}
	return &CsrfStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *CsrfStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *CsrfStore) Set(ctx context.Context, userID, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(userID), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCsrfRedisUnavailable, err)
	}
	return nil
}

func (s *CsrfStore) Get(ctx context.Context, userID string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCsrfNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrCsrfRedisUnavailable, err)
	}
	return value, nil
}

func (s *CsrfStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCsrfRedisUnavailable, err)
	}
	return nil
}
