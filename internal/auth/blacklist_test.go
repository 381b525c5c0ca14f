package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBlacklist(t *testing.T) {
	mr := miniredis.RunT(t)
	bl := NewRedisBlacklist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	revoked, err := bl.IsBlacklisted(ctx, "c1", "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.AddToBlacklist(ctx, "c1", "jti-1", time.Minute))

	revoked, err = bl.IsBlacklisted(ctx, "c1", "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsBlacklisted(ctx, "c2", "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation is company scoped")

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsBlacklisted(ctx, "c1", "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")
}

func TestRedisBlacklist_ExpiredTokenNotStored(t *testing.T) {
	mr := miniredis.RunT(t)
	bl := NewRedisBlacklist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, bl.AddToBlacklist(context.Background(), "c1", "old", -time.Second))
	assert.Empty(t, mr.Keys())
}

func TestRedisBlacklist_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	bl := NewRedisBlacklist(redis.NewClient(&redis.Options{Addr: addr}))
	_, err = bl.IsBlacklisted(context.Background(), "c1", "jti")
	assert.Error(t, err)
}
