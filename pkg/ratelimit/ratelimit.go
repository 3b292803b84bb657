package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store records hits for a key and reports whether another hit fits in the window
type Store interface {
	Allow(ctx context.Context, key string, maxHits int, window time.Duration) (bool, error)
}

// Counter is the atomic increment a shared backend such as Redis provides
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Limiter struct {
	store   Store
	window  time.Duration
	maxHits int
}

func NewLimiter(store Store, window time.Duration, maxHits int) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{
		store:   store,
		window:  window,
		maxHits: maxHits,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.store.Allow(ctx, key, l.maxHits, l.window)
}

// MemoryStore keeps a sliding window of hit timestamps per key
type MemoryStore struct {
	mu     sync.Mutex
	limits map[string][]time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		limits: make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryStore) Allow(_ context.Context, key string, maxHits int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-window)

	// Clean old entries
	if hits, exists := m.limits[key]; exists {
		valid := hits[:0]
		for _, hit := range hits {
			if hit.After(windowStart) {
				valid = append(valid, hit)
			}
		}
		m.limits[key] = valid
	}

	if len(m.limits[key]) >= maxHits {
		return false, nil
	}

	m.limits[key] = append(m.limits[key], now)
	return true, nil
}

// CounterStore is a fixed window limiter over a shared counter, so limits hold across replicas
type CounterStore struct {
	counter Counter
	prefix  string
	now     func() time.Time
}

func NewCounterStore(counter Counter, prefix string) *CounterStore {
	return &CounterStore{
		counter: counter,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (c *CounterStore) Allow(ctx context.Context, key string, maxHits int, window time.Duration) (bool, error) {
	bucket := c.now().UnixNano() / int64(window)
	count, err := c.counter.IncrWindow(ctx, fmt.Sprintf("%s:%s:%d", c.prefix, key, bucket), window)
	if err != nil {
		return false, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	return count <= int64(maxHits), nil
}
