package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InFlightTracker 記錄「saga 已開始」的標記，讓同一個 idempotency key 的併發請求能被偵測
type InFlightTracker interface {
	// Acquire 標記不存在時建立並回傳 true；已被他人持有時回傳 false
	Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error)
	// Release 只刪除自己持有的標記
	Release(ctx context.Context, key string, owner string) error
}

type RedisInFlightTrackerImpl struct {
	client *redis.Client
}

func NewRedisInFlightTracker(client *redis.Client) InFlightTracker {
	return &RedisInFlightTrackerImpl{
		client: client,
	}
}

// saga 標記 key
func (t *RedisInFlightTrackerImpl) getKey(key string) string {
	return fmt.Sprintf("saga:inflight:%s", key)
}

func (t *RedisInFlightTrackerImpl) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	return t.client.SetNX(ctx, t.getKey(key), owner, ttl).Result()
}

// compare-and-delete，避免刪掉 TTL 過期後別人重新建立的標記
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (t *RedisInFlightTrackerImpl) Release(ctx context.Context, key string, owner string) error {
	return releaseScript.Run(ctx, t.client, []string{t.getKey(key)}, owner).Err()
}
