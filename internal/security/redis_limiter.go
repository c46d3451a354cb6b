package security

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFixedWindowLimiter 使用 Redis 在多个中继实例间共享提交限流。
// 当 Redis 不可用时，会回退到内存限流，避免表单完全不可用。
type RedisFixedWindowLimiter struct {
	client    *redis.Client
	keyPrefix string
	fallback  *FixedWindowLimiter
	timeout   time.Duration
}

var fixedWindowAllowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

func NewRedisFixedWindowLimiter(client *redis.Client, keyPrefix string) *RedisFixedWindowLimiter {
	return &RedisFixedWindowLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		fallback:  NewFixedWindowLimiter(),
		timeout:   800 * time.Millisecond,
	}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if l == nil || limit <= 0 {
		return false
	}
	if l.client == nil {
		return l.fallback.Allow(ctx, key, limit, window)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	fullKey := fmt.Sprintf("%s:rate:%s", l.keyPrefix, key)
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1
	}

	result, err := fixedWindowAllowScript.Run(ctx, l.client, []string{fullKey}, limit, windowMillis).Int()
	if err != nil {
		log.Printf("Redis 限流失败，回退到内存限流: %v", err)
		return l.fallback.Allow(ctx, key, limit, window)
	}
	return result == 1
}
