package pubsub

import (
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisChannel implements EventChannel on top of Redis pub/sub.
// The client is a process-wide shared resource acquired once at startup;
// go-redis handles reconnection of the underlying connection pool.
type RedisChannel struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisChannel(rdb *redis.Client, log *slog.Logger) *RedisChannel {
	return &RedisChannel{rdb: rdb, log: log}
}

// Ping reports broker reachability. Used by the health worker.
func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisChannel) Publish(ctx context.Context, roomID string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channelName(roomID), payload).Err(); err != nil {
		return errors.Wrap(errors.CodeChannelUnavailable, "redis publish failed", err)
	}
	return nil
}

// Subscribe opens a dedicated Redis subscription for the room and pumps its
// payloads into fn from a background goroutine, preserving arrival order.
func (c *RedisChannel) Subscribe(ctx context.Context, roomID string, fn HandlerFunc) (Subscription, error) {
	ps := c.rdb.Subscribe(ctx, channelName(roomID))
	// Confirm the SUBSCRIBE before reporting success.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(errors.CodeChannelUnavailable, "redis subscribe failed", err)
	}

	sub := &redisSubscription{ps: ps}
	go func() {
		for msg := range ps.Channel() {
			fn([]byte(msg.Payload))
		}
		c.log.Debug("Redis room subscription drained", "room_id", roomID)
	}()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	once sync.Once
}

func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		// Closing the PubSub also closes the channel feeding the pump goroutine.
		_ = s.ps.Close()
	})
}
