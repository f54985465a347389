package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryCounterStore implements CounterStore with process-local counters.
// The increment and the window expiry happen under one lock, matching the
// atomicity the Redis implementation gets from its pipeline.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Incr increments the counter for key, starting a fresh window when no live
// counter exists.
func (s *InMemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &windowCounter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}
