package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)

// Rule bounds one action to Limit attempts per rolling Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter enforces per-action, per-identity attempt budgets with Redis
// fixed-window counters. Actions without a configured rule are unlimited.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	rules  map[string]Rule
}

func New(redisClient redis.UniversalClient, prefix string, rules map[string]Rule) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		rules:  rules,
	}
}

func (l *Limiter) key(action, identity string) string {
	return l.prefix + ":" + action + ":" + identity
}

// Allow records one attempt for action+identity and reports whether it is
// within budget. The attempt is counted even when denied, so a flood keeps
// pushing its own window.
func (l *Limiter) Allow(ctx context.Context, action, identity string) (bool, error) {
	rule, ok := l.rules[action]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return true, nil
	}

	key := l.key(action, identity)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// First hit in the window owns the TTL.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, rule.Window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count <= int64(rule.Limit), nil
}

// Reset clears the counter for action+identity, typically after a successful
// attempt so legitimate clients do not burn budget across sessions.
func (l *Limiter) Reset(ctx context.Context, action, identity string) error {
	if err := l.redis.Del(ctx, l.key(action, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the live counter for action+identity. Missing keys read
// as zero and do not reveal whether the identity exists.
func (l *Limiter) Attempts(ctx context.Context, action, identity string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(action, identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}
