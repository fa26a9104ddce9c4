package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis adapts one client to the capped-list, queue, pub/sub and
// conditional-set seams the channel adapters and milestone detector consume.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// PushCapped prepends a JSON record and trims the list to cap. Push and trim
// are individually atomic but not transactional as a pair; a crash between
// them leaves the list transiently over cap and the next write corrects it.
func (r *Redis) PushCapped(ctx context.Context, key string, value any, limit int64) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", key, err)
	}
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, body)
		pipe.LTrim(ctx, key, 0, limit-1)
		return nil
	})
	return err
}

func (r *Redis) PushCappedTTL(ctx context.Context, key string, value any, limit int64, ttl time.Duration) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", key, err)
	}
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, body)
		pipe.LTrim(ctx, key, 0, limit-1)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (r *Redis) Enqueue(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", key, err)
	}
	return r.client.RPush(ctx, key, body).Err()
}

func (r *Redis) Broadcast(ctx context.Context, channel string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	return r.client.Publish(ctx, channel, body).Err()
}

// SetIfAbsent is the atomic conditional set milestone detection relies on.
func (r *Redis) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, "1", ttl).Result()
}
