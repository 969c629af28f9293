package cache

import (
	"errors"
	"sync"
	"time"

	"x-command-dashboard/internal/domain"
)

// ErrMiss возвращается, когда ключа нет или его срок истёк.
var ErrMiss = errors.New("ключ не найден")

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryCache — кэш в памяти для запуска без Redis.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]entry
}

// NewMemory создаёт кэш в памяти.
func NewMemory() *MemoryCache {
	return &MemoryCache{data: map[string]entry{}}
}

var _ domain.Cache = (*MemoryCache)(nil)

// Set задаёт значение; ttl <= 0 означает без срока.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.data[key] = e
	return nil
}

// Get возвращает значение; просроченный ключ удаляется.
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(c.data, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}
