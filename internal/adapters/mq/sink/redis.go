package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

// Publisher is the subset of *redis.Client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink publishes events on a Redis pub/sub channel.
type RedisSink struct {
	rdb     Publisher
	channel string
}

// NewRedisSink publishes to channel through rdb.
func NewRedisSink(rdb Publisher, channel string) *RedisSink {
	return &RedisSink{rdb: rdb, channel: channel}
}

// Handle publishes one event.
func (s *RedisSink) Handle(ctx context.Context, e model.PlatformEvent) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if err := s.rdb.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}
