package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ayusman/signassess/internal/session"
)

// DefaultRedisKey is the list records are pushed onto.
const DefaultRedisKey = "signassess:sessions"

// RedisSink pushes records as JSON onto a Redis list for downstream consumers.
type RedisSink struct {
	client *redis.Client
	key    string
}

// ConnectRedis connects to addr and verifies the connection.
func ConnectRedis(ctx context.Context, addr, key string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSink(client, key), nil
}

// NewRedisSink wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSink{client: client, key: key}
}

// Save appends the record to the list.
func (r *RedisSink) Save(ctx context.Context, rec *session.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.RPush(ctx, r.key, string(data)).Err(); err != nil {
		return fmt.Errorf("error adding session to %s: %w", r.key, err)
	}
	return nil
}

// Len returns the number of records waiting in the list.
func (r *RedisSink) Len(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("error getting list length: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection.
func (r *RedisSink) Close() error {
	return r.client.Close()
}
