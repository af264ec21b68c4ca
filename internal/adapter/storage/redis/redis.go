package redis

import (
	"context"
	"fmt"

	"fuel-wallet/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces every key this service writes.
const keyPrefix = "fuelwallet:"

// NewClient connects to Redis and fails fast if the server does not answer.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Str("prefix", keyPrefix).Msg("redis ready")
	return client, nil
}

// Health pings the Redis server backing token sequences, settlement
// results and rate limits.
type Health struct {
	client *goredis.Client
}

func NewHealth(client *goredis.Client) *Health {
	return &Health{client: client}
}

func (h *Health) Name() string { return "redis" }

func (h *Health) Check(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}
