package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisCache 以 Redis 保存生成結果，多個實例可共用
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis 連線 Redis 並測試連接
func NewRedis(rc config.RedisConfig, cc config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", rc.Addr), zap.Duration("ttl", cc.TTL))
	return newRedisCache(client, cc.TTL), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get 獲取緩存
func (s *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		common.LogCacheMiss("redis")
		return "", common.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	common.LogCacheHit("redis")
	return val, nil
}

// Set 設置緩存
func (s *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *RedisCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisCache) Close() error {
	return s.client.Close()
}
