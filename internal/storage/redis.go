package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store keeping each namespace in one hash.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr. Keys are stored as "<prefix>:<namespace>" hashes.
func NewRedis(addr, prefix string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) hashKey(namespace string) string {
	return fmt.Sprintf("%s:%s", r.prefix, namespace)
}

func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	value, err := r.client.HGet(ctx, r.hashKey(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

func (r *Redis) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.hashKey(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("redis: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, namespace, key string) error {
	if err := r.client.HDel(ctx, r.hashKey(namespace), key).Err(); err != nil {
		return fmt.Errorf("redis: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
