package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV 使用 Redis 让多个服务实例共享提交记录。
// 当 Redis 不可用时，会回退到内存存储。
type RedisKV struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	fallback  *MemoryKV
	timeout   time.Duration
}

// NewRedisKV ttl 为 0 时键不过期
func NewRedisKV(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisKV {
	return &RedisKV{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		fallback:  NewMemoryKV(),
		timeout:   800 * time.Millisecond,
	}
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	if k == nil {
		return "", false, ErrStorageUnavailable
	}
	if k.client == nil {
		return k.fallback.Get(ctx, key)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	value, err := k.client.Get(ctx, k.fullKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		log.Printf("Redis 读取失败，回退到内存存储: %v", err)
		return k.fallback.Get(ctx, key)
	}
	return value, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	if k == nil {
		return ErrStorageUnavailable
	}
	if k.client == nil {
		return k.fallback.Set(ctx, key, value)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.client.Set(ctx, k.fullKey(key), value, k.ttl).Err(); err != nil {
		log.Printf("Redis 写入失败，回退到内存存储: %v", err)
		return k.fallback.Set(ctx, key, value)
	}
	return nil
}

func (k *RedisKV) fullKey(key string) string {
	return fmt.Sprintf("%s:kv:%s", k.keyPrefix, key)
}
