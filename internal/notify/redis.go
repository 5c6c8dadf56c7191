package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/geoalarm/internal/config"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 4,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return rdb, nil
}

// Pinger is satisfied by *redis.Client.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthCheck reports whether Redis answers PING.
type HealthCheck struct {
	Client Pinger
}

// Check implements the HTTP health checker.
func (h HealthCheck) Check(ctx context.Context) error {
	return h.Client.Ping(ctx).Err()
}
