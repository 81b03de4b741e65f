// Package kv implements the Storage capability (C7): a flat key/value store
// used for small pieces of out-of-band state (fast-wake signalling, gateway
// config cache) that don't warrant a relational table. Backed by go-redis,
// grounded on the teacher's internal/platform/redis.go client.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is the key/value capability interface.
type Storage interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	// Publish/Subscribe back the scheduler's fast-wake channel (spec.md §9's
	// design note: Redis pub/sub is a non-authoritative shortcut layered on
	// top of the ticker, which remains the correctness fallback).
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channel string) (<-chan string, func() error)
}

// RedisStorage implements Storage over a go-redis client.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage wraps an already-connected go-redis client.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv list %s*: %w", prefix, err)
	}
	return out, nil
}

func (s *RedisStorage) Publish(ctx context.Context, channel, message string) error {
	if err := s.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("kv publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of messages and a close function. The caller
// must call close to release the underlying pubsub connection.
func (s *RedisStorage) Subscribe(ctx context.Context, channel string) (<-chan string, func() error) {
	pubsub := s.client.Subscribe(ctx, channel)
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- msg.Payload
		}
	}()
	return out, pubsub.Close
}
