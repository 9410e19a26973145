package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/ledgerbot/internal/usecase"
)

type kvItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// kv is an expiring byte map. Expired items are dropped on access.
type kv struct {
	mu    sync.Mutex
	items map[string]kvItem
	now   func() time.Time
}

func newKV() *kv {
	return &kv{items: make(map[string]kvItem), now: time.Now}
}

func (k *kv) getLocked(key string) ([]byte, bool) {
	item, ok := k.items[key]
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && !k.now().Before(item.expiresAt) {
		delete(k.items, key)
		return nil, false
	}
	return item.value, true
}

func (k *kv) setLocked(key string, value []byte, ttl time.Duration) {
	item := kvItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = k.now().Add(ttl)
	}
	k.items[key] = item
}

// Cache implements usecase.Cache in process memory.
type Cache struct {
	kv *kv
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{kv: newKV()}
}

// Get returns usecase.ErrCacheMiss for absent or expired keys.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.kv.mu.Lock()
	defer c.kv.mu.Unlock()

	v, ok := c.kv.getLocked(key)
	if !ok {
		return nil, usecase.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.kv.mu.Lock()
	defer c.kv.mu.Unlock()

	c.kv.setLocked(key, value, ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.kv.mu.Lock()
	defer c.kv.mu.Unlock()

	delete(c.kv.items, key)
	return nil
}

// IdempotencyStore implements usecase.IdempotencyStore in process memory.
type IdempotencyStore struct {
	kv *kv
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{kv: newKV()}
}

// CheckAndSet claims key with response, or with usecase.IdempotencyPending
// when response is nil.
func (s *IdempotencyStore) CheckAndSet(_ context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.kv.mu.Lock()
	defer s.kv.mu.Unlock()

	if existing, ok := s.kv.getLocked(key); ok {
		return true, append([]byte(nil), existing...), nil
	}

	if response == nil {
		response = []byte(usecase.IdempotencyPending)
	}
	s.kv.setLocked(key, response, ttl)
	return false, nil, nil
}

func (s *IdempotencyStore) Update(_ context.Context, key string, response []byte, ttl time.Duration) error {
	s.kv.mu.Lock()
	defer s.kv.mu.Unlock()

	s.kv.setLocked(key, response, ttl)
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.kv.mu.Lock()
	defer s.kv.mu.Unlock()

	delete(s.kv.items, key)
	return nil
}
