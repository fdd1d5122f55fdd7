package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "userpipe.notifications"

// RedisNotifier publishes notifications on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier connects lazily to addr; the first Notify dials.
func NewRedisNotifier(addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, errors.New("redis notifier: address is required")
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: -1, // single attempt per notification
	})
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := n.payload()
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing to redis channel %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
