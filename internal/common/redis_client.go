package common

import (
	"context"
	"fmt"
	"time"

	"diversifia/ordersync/internal/config"
	"diversifia/ordersync/internal/logging"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance holding the ADV document when
// TARGET_STORE=redis. Unlike a cache, the store is required, so a failed ping
// is returned to the caller.
func NewRedisClient(cfg config.Redis) (*redis.Client, error) {
	redisDB := 0 // Default DB

	logging.Info("Initializing Redis client", "addr", cfg.Addr(), "db", redisDB)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr(), err)
	}

	logging.Info("Successfully connected to Redis")
	return client, nil
}
