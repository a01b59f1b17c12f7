package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// windowScript increments the key's counter and starts its window on the
// first hit. Running it as one script makes the check-and-increment atomic
// across every API instance sharing the Redis.
var windowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimiter is a fixed-window limiter whose counters live in Redis.
// Key format: ratelimit:<key>
type RateLimiter struct {
	client *redis.Client
	policy domain.RateLimitPolicy
}

// NewRateLimiter creates a RateLimiter wrapping the given Redis client.
func NewRateLimiter(client *redis.Client, policy domain.RateLimitPolicy) *RateLimiter {
	return &RateLimiter{client: client, policy: policy.Normalize()}
}

// Allow counts one request for key and reports whether it is admitted.
func (l *RateLimiter) Allow(ctx context.Context, key string) (domain.RateDecision, error) {
	vals, err := windowScript.Run(ctx, l.client, []string{l.key(key)}, l.policy.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.RateDecision{}, fmt.Errorf("rate limit %s: %w: %w", key, domain.ErrUpstream, err)
	}
	if len(vals) != 2 {
		return domain.RateDecision{}, fmt.Errorf("rate limit %s: unexpected script reply %v", key, vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	if count <= l.policy.Max {
		return domain.RateDecision{Allowed: true, Remaining: l.policy.Max - count}, nil
	}
	return domain.RateDecision{Allowed: false, RetryAfter: ttl}, nil
}

func (l *RateLimiter) key(key string) string {
	return "ratelimit:" + key
}
