package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist tracks revoked token ids until they would have expired anyway.
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, companyID, jti string) (bool, error)
	AddToBlacklist(ctx context.Context, companyID, jti string, ttl time.Duration) error
}

type RedisBlacklist struct {
	client redis.Cmdable
}

func NewRedisBlacklist(client redis.Cmdable) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func blacklistKey(companyID, jti string) string {
	return fmt.Sprintf("blacklist:%s:%s", companyID, jti)
}

func (r *RedisBlacklist) IsBlacklisted(ctx context.Context, companyID, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, blacklistKey(companyID, jti)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// AddToBlacklist is a no-op for tokens that are already expired.
func (r *RedisBlacklist) AddToBlacklist(ctx context.Context, companyID, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, blacklistKey(companyID, jti), "revoked", ttl).Err()
}
