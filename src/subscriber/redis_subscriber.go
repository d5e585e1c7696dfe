package subscriber

import (
	"context"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"

	"github.com/go-redis/redis/v8"
)

// RedisSubscriber listens on the per-symbol channels of RedisTransport.
type RedisSubscriber struct {
	Config models.MRedisConfig
	Logger *logger.Logger
}

func NewRedisSubscriber(cfg models.MRedisConfig) *RedisSubscriber {
	return &RedisSubscriber{
		Config: cfg,
		Logger: logger.NewLogger(nil, "RedisSubscriber"),
	}
}

// -----------------------------------------------------------------------------

func (s *RedisSubscriber) Subscribe(ctx context.Context, symbols []string, handler Handler) error {
	client := redis.NewClient(&redis.Options{
		Addr:     s.Config.Addr,
		Password: s.Config.Password,
		DB:       s.Config.DB,
	})
	defer client.Close()

	err := helpers.RetryWithBackoff(ctx, "redis ping", 3, time.Second, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		return err
	}

	var pubsub *redis.PubSub
	symbols = normalize(symbols)
	if len(symbols) == 0 {
		pubsub = client.PSubscribe(ctx, s.Config.ChannelPrefix+"*")
	} else {
		channels := make([]string, len(symbols))
		for i, sym := range symbols {
			channels[i] = s.Config.ChannelPrefix + sym
		}
		pubsub = client.Subscribe(ctx, channels...)
	}
	defer pubsub.Close()

	// wait for the subscription confirmation before reading
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	s.Logger.Info("Subscribed to %d channel(s) on %s", max(len(symbols), 1), s.Config.Addr)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, isData, err := decode([]byte(m.Payload))
			if err != nil {
				s.Logger.Warning("Dropping undecodable message on %s: %v", m.Channel, err)
				continue
			}
			if isData {
				handler(msg)
			}
		}
	}
}
