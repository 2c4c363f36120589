package codestore

import (
	"context"
	"sync"
	"time"
)

// memoryStore is an in-process Store for local development and tests,
// used when no Redis address is configured.
type memoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory code store.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string]memoryItem)}
}

func (s *memoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(item.expiresAt) {
		delete(s.items, key)
		return "", ErrNotFound
	}
	return item.value, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
