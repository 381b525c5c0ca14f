package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRedisUnavailable  = errors.New("redis unavailable")
)

type Scope string

const (
	ScopeIP      Scope = "ip"
	ScopeCompany Scope = "company"
	ScopeAnalyze Scope = "analyze"
)

type Decision struct {
	Scope      Scope
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter int // seconds
	Allowed    bool
}

type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

// Disabled reports a config that never limits.
func (c LimitConfig) Disabled() bool {
	return c.Rate <= 0 || c.Window <= 0
}

// Fixed window counter. The first hit sets the expiry; the script returns
// the count and the remaining time to live in milliseconds.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if tonumber(current) == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type Limiter struct {
	client redis.Scripter
	salt   string
	now    func() time.Time
}

func NewLimiter(client redis.Scripter, salt string) *Limiter {
	if salt == "" {
		salt = "vms-analytics"
	}
	return &Limiter{client: client, salt: salt, now: time.Now}
}

// HashIP keeps raw client addresses out of Redis.
func (l *Limiter) HashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip + l.salt))
	return hex.EncodeToString(hash[:])
}

// Key builds the Redis key for a scope and subject.
func Key(scope Scope, subject string) string {
	return fmt.Sprintf("rl:%s:%s", scope, subject)
}

// Check counts one hit against key. Redis failures return ErrRedisUnavailable
// so callers can choose to fail open.
func (l *Limiter) Check(ctx context.Context, scope Scope, key string, cfg LimitConfig) (*Decision, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return nil, ErrRedisUnavailable
	}
	count, ttlMs := int(res[0]), res[1]
	if ttlMs < 0 {
		ttlMs = cfg.Window.Milliseconds()
	}
	ttl := time.Duration(ttlMs) * time.Millisecond

	remaining := cfg.Rate - count
	if remaining < 0 {
		remaining = 0
	}
	retry := int((ttl + time.Second - 1) / time.Second)

	return &Decision{
		Scope:      scope,
		Limit:      cfg.Rate,
		Remaining:  remaining,
		Reset:      l.now().Add(ttl),
		RetryAfter: retry,
		Allowed:    count <= cfg.Rate,
	}, nil
}
