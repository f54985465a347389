package authentication

import (
	"context"
	"sync"
	"time"

	"realname/internal/method"
	"realname/internal/provider"
	"realname/pkg/domain"
	"realname/pkg/platform/sentinel"
)

// InMemoryStore keeps records and results in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	byID    map[domain.AuthenticationID]*Record
	results map[domain.AuthenticationID][]*provider.Result

	now func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[domain.AuthenticationID]*Record),
		results: make(map[domain.AuthenticationID][]*provider.Result),
		now:     time.Now,
	}
}

func (s *InMemoryStore) CreateIfNoActive(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, existing := range s.records {
		if existing.Subject == r.Subject && existing.Method == r.Method && existing.Blocking(now) {
			return sentinel.ErrConflict
		}
	}
	clone := cloneRecord(r)
	s.records = append(s.records, clone)
	s.byID[r.ID] = clone
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	*existing = *cloneRecord(r)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.AuthenticationID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.byID[id]; ok {
		return cloneRecord(r), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindBlocking(_ context.Context, subject string, m method.Method) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for _, r := range s.records {
		if r.Subject == subject && r.Method == m && r.Blocking(now) {
			return cloneRecord(r), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListOverdue(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []*Record
	for _, r := range s.records {
		switch r.Status {
		case StatusRejected, StatusExpired:
			continue
		}
		if r.ExpireTime != nil && !now.Before(*r.ExpireTime) {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

func (s *InMemoryStore) CreateResult(_ context.Context, res *provider.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *res
	s.results[res.AuthenticationID] = append(s.results[res.AuthenticationID], &clone)
	return nil
}

func (s *InMemoryStore) ListResults(_ context.Context, id domain.AuthenticationID) ([]*provider.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*provider.Result, 0, len(s.results[id]))
	for _, res := range s.results[id] {
		clone := *res
		out = append(out, &clone)
	}
	return out, nil
}

func cloneRecord(r *Record) *Record {
	clone := *r
	if r.SubmittedData != nil {
		clone.SubmittedData = make(map[string]string, len(r.SubmittedData))
		for k, v := range r.SubmittedData {
			clone.SubmittedData[k] = v
		}
	}
	return &clone
}
