package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string `default:"localhost:6379" env:"REDIS_ADDRESS" yaml:"address"`
	Password string `env:"REDIS_PASSWORD"   yaml:"password"`
	DB       int    `env:"REDIS_DB"         yaml:"db"`
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const connectionTimeout = 5 * time.Second

// RedisBackend is the durable, shared cache backend. Values are stored as
// JSON with Redis-managed TTLs, so expiry needs no lazy eviction here.
type RedisBackend struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig, log logger.Logger) (*RedisBackend, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{client: client, logger: log}, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) (*schema.AnalysisResult, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var result schema.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is a miss; drop it so it cannot recur.
		b.logger.Warn("evicting undecodable cache entry", logger.String("key", key), logger.Error(err))
		b.client.Del(ctx, key)
		return nil, false, nil
	}
	return &result, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, result *schema.AnalysisResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		// Redis rejects non-positive expirations; an instantly expired
		// entry is equivalent to never storing it.
		return nil
	}
	if err := b.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *RedisBackend) Clear(ctx context.Context) error {
	return b.client.FlushDB(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
