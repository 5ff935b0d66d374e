// Package identity adapts hosted account stores to store.IdentityStore.
package identity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

const redisKeyPrefix = "identity:"

// RedisStore keeps each account as a hash under identity:<id>.
type RedisStore struct {
	client *redis.Client
}

// NewRedis parses url and verifies the connection.
func NewRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) PutIdentity(ctx context.Context, identity models.Identity) error {
	err := s.client.HSet(ctx, redisKeyPrefix+identity.ID,
		"displayName", identity.DisplayName,
		"email", identity.Email,
	).Err()
	if err != nil {
		return fmt.Errorf("put identity %s: %w", identity.ID, err)
	}
	return nil
}

func (s *RedisStore) GetIdentity(ctx context.Context, id string) (models.Identity, error) {
	fields, err := s.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return models.Identity{}, fmt.Errorf("get identity %s: %w", id, err)
	}
	if len(fields) == 0 {
		return models.Identity{}, fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	return models.Identity{ID: id, DisplayName: fields["displayName"], Email: fields["email"]}, nil
}

func (s *RedisStore) DeleteIdentity(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete identity %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("identity %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var (
	_ store.IdentityStore  = (*RedisStore)(nil)
	_ store.IdentityWriter = (*RedisStore)(nil)
)
