package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presencePrefix = "ordercast:presence:"

// RedisPresenceStore keeps one ZSET per room, scored by the deadline after
// which a connection counts as gone.
type RedisPresenceStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
		now: time.Now,
	}
}

// Touch adds or refreshes the connection in the room's ZSet.
func (p *RedisPresenceStore) Touch(ctx context.Context, room, connID string, ttl time.Duration) error {
	key := presencePrefix + room
	deadline := p.now().Add(ttl).UnixMilli()

	pipe := p.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(deadline), Member: connID})
	// Expire the whole set so it doesn't leak memory once the room goes quiet.
	pipe.Expire(ctx, key, ttl*2)
	_, err := pipe.Exec(ctx)
	return err
}

// Online returns connections whose deadline has not passed, pruning the rest.
func (p *RedisPresenceStore) Online(ctx context.Context, room string) ([]string, error) {
	key := presencePrefix + room
	now := strconv.FormatInt(p.now().UnixMilli(), 10)

	// Remove stale members first (self-cleaning)
	if err := p.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}
	ids, err := p.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: now, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (p *RedisPresenceStore) Leave(ctx context.Context, room, connID string) error {
	return p.rdb.ZRem(ctx, presencePrefix+room, connID).Err()
}
