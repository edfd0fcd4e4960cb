package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-property-management/shared/config"
)

var (
	RedisClient *redis.Client

	// ErrCacheMiss is returned when a key is absent or the cache is disabled
	ErrCacheMiss = errors.New("cache miss")
)

// InitRedis initializes the Redis client
func InitRedis() error {
	cfg := config.GetRedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	RedisClient = client
	logrus.WithField("addr", cfg.Addr()).Info("Connected to Redis")
	return nil
}

// CacheSet stores a value in Redis with expiration. It is a no-op when the
// cache is disabled.
func CacheSet(ctx context.Context, key string, value string, expiration time.Duration) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(ctx, key, value, expiration).Err()
}

// CacheGet retrieves a value from Redis
func CacheGet(ctx context.Context, key string) (string, error) {
	if RedisClient == nil {
		return "", ErrCacheMiss
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return val, err
}

// CacheSetJSON marshals value and stores it
func CacheSetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return CacheSet(ctx, key, string(data), expiration)
}

// CacheGetJSON loads key into dest
func CacheGetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := CacheGet(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// CacheDeletePattern removes every key matching pattern. Used to drop all
// cached views of an organization after a write.
func CacheDeletePattern(ctx context.Context, pattern string) error {
	if RedisClient == nil {
		return nil
	}
	iter := RedisClient.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return RedisClient.Del(ctx, keys...).Err()
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
