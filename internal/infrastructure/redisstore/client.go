package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-docverify/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and pings it once.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("failed to connect to Redis: no host configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
