package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a hit in KEYS[1] and starts the window on the
// first hit. Returns {count, remaining window in ms}.
var fixedWindowScript = redis.NewScript(`
local window_ms = tonumber(ARGV[1])
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], window_ms)
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], window_ms)
  ttl = window_ms
end
return {count, ttl}
`)

// Policy allows Limit hits per Window for a key.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single hit.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a Redis-backed fixed-window counter.
type Limiter struct {
	client redis.UniversalClient
	prefix string
}

// NewLimiter builds a limiter storing counters under prefix.
func NewLimiter(client redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{client: client, prefix: prefix}
}

// Allow records a hit for key under policy.
func (l *Limiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	if l == nil || l.client == nil {
		return Decision{}, errors.New("redis client is nil")
	}
	if policy.Limit <= 0 {
		return Decision{Allowed: true, Remaining: 0}, nil
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := policy.Window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	values, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(values) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script response of length %d", len(values))
	}

	count, ttl := values[0], values[1]
	if ttl <= 0 {
		ttl = 1
	}
	remaining := int64(policy.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{Allowed: count <= int64(policy.Limit), Remaining: int(remaining)}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return decision, nil
}
