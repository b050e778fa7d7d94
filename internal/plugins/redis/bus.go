package redis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const busPrefix = "ordercast:room:"

// RedisEventBus fans frames out to every server node over Redis pub/sub.
// Delivery is at most once; a node that is not subscribed misses the frame,
// which matches what a disconnected client would see anyway.
type RedisEventBus struct {
	log *slog.Logger
	rdb *redis.Client
}

func NewRedisEventBus(log *slog.Logger, rdb *redis.Client) *RedisEventBus {
	return &RedisEventBus{
		log: log.With(slog.String("component", "redis_bus")),
		rdb: rdb,
	}
}

func (b *RedisEventBus) Publish(ctx context.Context, room string, frame []byte) error {
	return b.rdb.Publish(ctx, busPrefix+room, frame).Err()
}

func (b *RedisEventBus) Subscribe(ctx context.Context, fn func(room string, frame []byte)) error {
	sub := b.rdb.PSubscribe(ctx, busPrefix+"*")
	defer sub.Close()

	// Wait for the subscription to be confirmed so publishes after this point
	// are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.log.InfoContext(ctx, "bus - subscribe - listening", slog.String("pattern", busPrefix+"*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			room, found := strings.CutPrefix(msg.Channel, busPrefix)
			if !found {
				b.log.DebugContext(ctx, "bus - subscribe - foreign channel", slog.String("channel", msg.Channel))
				continue
			}
			fn(room, []byte(msg.Payload))
		}
	}
}
