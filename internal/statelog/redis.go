package statelog

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes events to a Pub/Sub channel so external observers can
// follow rooms live.
type RedisSink struct {
	rdb *redis.Client
}

// NewRedisSink wraps an established Redis client. The sink does not own the
// client; callers close it separately.
func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb}
}

func (s *RedisSink) Write(ev Event) error {
	data, err := ev.marshal()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return s.rdb.Publish(ctx, Channel, data).Err()
}

func (s *RedisSink) Close() error {
	return nil
}
