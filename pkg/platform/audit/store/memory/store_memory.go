// Package memory provides an in-memory audit store for development and tests.
package memory

import (
	"context"
	"sync"

	audit "realname/pkg/platform/audit"
)

// InMemoryStore keeps audit events in process memory, grouped by batch.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByBatch(_ context.Context, batchID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}
