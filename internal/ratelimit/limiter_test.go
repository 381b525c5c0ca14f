package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(rdb, "salt")
	cfg := LimitConfig{Rate: 2, Window: 10 * time.Second}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Check(ctx, ScopeIP, "rl:ip:x", cfg)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1-i, d.Remaining)
	}

	d, err := l.Check(ctx, ScopeIP, "rl:ip:x", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 10, d.RetryAfter)

	mr.FastForward(11 * time.Second)

	d, err = l.Check(ctx, ScopeIP, "rl:ip:x", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window expired")
}

func TestCheck_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	l := NewLimiter(redis.NewClient(&redis.Options{Addr: addr}), "")
	_, err = l.Check(context.Background(), ScopeIP, "rl:ip:y", LimitConfig{Rate: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestHashIP_StableAndSalted(t *testing.T) {
	a := NewLimiter(nil, "one")
	b := NewLimiter(nil, "two")

	assert.Equal(t, a.HashIP("10.0.0.1"), a.HashIP("10.0.0.1"))
	assert.NotEqual(t, a.HashIP("10.0.0.1"), b.HashIP("10.0.0.1"))
	assert.NotContains(t, a.HashIP("10.0.0.1"), "10.0.0.1")
}

func TestLimitConfig_Disabled(t *testing.T) {
	assert.True(t, LimitConfig{}.Disabled())
	assert.False(t, LimitConfig{Rate: 1, Window: time.Second}.Disabled())
}
