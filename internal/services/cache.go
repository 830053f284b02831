package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

const redisBookPrefix = "readx:book:"

type cachedBook struct {
	book    models.Book
	expires time.Time
}

// MemoryBookCache is an in-process [BookCache].
type MemoryBookCache struct {
	mu    sync.RWMutex
	items map[string]cachedBook
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryBookCache creates a cache whose entries expire after ttl. A zero ttl never expires.
func NewMemoryBookCache(ttl time.Duration) *MemoryBookCache {
	return &MemoryBookCache{items: make(map[string]cachedBook), ttl: ttl, now: time.Now}
}

func (m *MemoryBookCache) Get(_ context.Context, id string) (*models.Book, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()

	if !ok || (!item.expires.IsZero() && m.now().After(item.expires)) {
		return nil, shared.ErrCacheMiss
	}
	book := item.book
	return &book, nil
}

func (m *MemoryBookCache) Set(_ context.Context, book models.Book) error {
	item := cachedBook{book: book}
	if m.ttl > 0 {
		item.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.items[book.ID] = item
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryBookCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// RedisBookCache shares normalized books through Redis as JSON.
type RedisBookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBookCache wraps an existing client.
func NewRedisBookCache(client *redis.Client, ttl time.Duration) *RedisBookCache {
	return &RedisBookCache{client: client, ttl: ttl}
}

func (r *RedisBookCache) key(id string) string {
	return redisBookPrefix + id
}

func (r *RedisBookCache) Get(ctx context.Context, id string) (*models.Book, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("%w: cached book %s: %w", shared.ErrMalformedResponse, id, err)
	}
	return &book, nil
}

func (r *RedisBookCache) Set(ctx context.Context, book models.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to encode book: %w", err)
	}
	return r.client.Set(ctx, r.key(book.ID), data, r.ttl).Err()
}

// Close releases the underlying client.
func (r *RedisBookCache) Close() error {
	return r.client.Close()
}

// NewBookCache builds the cache selected by cfg. Redis connections are verified with PING.
func NewBookCache(ctx context.Context, cfg shared.CacheConfig) (BookCache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryBookCache(cfg.TTL()), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: redis at %s: %w", shared.ErrServiceUnavailable, cfg.RedisAddr, err)
		}
		return NewRedisBookCache(client, cfg.TTL()), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
