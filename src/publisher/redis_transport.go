package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"github.com/go-redis/redis/v8"
)

// -----------------------------------------------------------------------------
// RedisTransport publishes JSON messages on one channel per symbol
// (ChannelPrefix + symbol). Wildcard subscribers PSUBSCRIBE ChannelPrefix*.
// -----------------------------------------------------------------------------

type RedisTransport struct {
	Config models.MRedisConfig
	Logger *logger.Logger
	client *redis.Client
}

func NewRedisTransport(cfg models.MRedisConfig) *RedisTransport {
	return &RedisTransport{
		Config: cfg,
		Logger: logger.NewLogger(nil, "RedisTransport"),
	}
}

func (t *RedisTransport) Name() string {
	return "redis"
}

// -----------------------------------------------------------------------------

func (t *RedisTransport) Start(ctx context.Context) error {
	t.client = redis.NewClient(&redis.Options{
		Addr:     t.Config.Addr,
		Password: t.Config.Password,
		DB:       t.Config.DB,
	})

	err := helpers.RetryWithBackoff(ctx, "redis ping", 3, time.Second, func() error {
		return t.client.Ping(ctx).Err()
	})
	if err != nil {
		_ = t.client.Close()
		t.client = nil
		return err
	}

	t.Logger.Info("Connected to redis at %s, channels %s<symbol>", t.Config.Addr, t.Config.ChannelPrefix)
	return nil
}

// -----------------------------------------------------------------------------

// Channel returns the pub/sub channel of symbol.
func (t *RedisTransport) Channel(symbol string) string {
	return t.Config.ChannelPrefix + symbol
}

func (t *RedisTransport) Send(ctx context.Context, msg models.MMessage) error {
	if t.client == nil {
		return fmt.Errorf("redis transport not started")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.Channel(msg.Symbol), payload).Err()
}

// -----------------------------------------------------------------------------

func (t *RedisTransport) Stop() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
