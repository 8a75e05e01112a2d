package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds configuration for Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisSource serves documents stored as plain string keys
// "<prefix>:<kind>:<name>".
type RedisSource struct {
	rdb    *redis.Client
	prefix string
	kind   string
}

// NewRedisClient creates a new Redis client with connection validation
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// NewRedisSource serves documents of one kind ("schema" or "values").
func NewRedisSource(rdb *redis.Client, prefix, kind string) *RedisSource {
	if prefix == "" {
		prefix = "configbot"
	}
	return &RedisSource{rdb: rdb, prefix: prefix, kind: kind}
}

// Key returns the Redis key holding name.
func (s *RedisSource) Key(name string) string {
	return s.prefix + ":" + s.kind + ":" + name
}

// Load implements Source.
func (s *RedisSource) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.Key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", s.Key(name), err)
	}
	return data, nil
}

// Ping checks if Redis is reachable
func (s *RedisSource) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
