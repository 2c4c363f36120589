// Package codestore holds short-lived SMS verification codes.
// Codes are stored under a fixed key namespace with TTL-based expiration.
package codestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no code exists for a key.
var ErrNotFound = errors.New("code not found")

// Store defines the interface for verification-code storage.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the namespaced storage key for a phone number.
func Key(phone string) string {
	return fmt.Sprintf("sms:code:%s", phone)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed code store.
func NewRedisStore(addr, password string, db int) Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &redisStore{client: client}
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
