package provider

import (
	"context"
	"strings"
	"sync"

	"realname/pkg/domain"
	"realname/pkg/platform/sentinel"
)

// Store persists providers. Implementations must enforce code uniqueness and
// return sentinel.ErrConflict on duplicates.
type Store interface {
	CreateIfCodeAvailable(ctx context.Context, p *Provider) error
	Update(ctx context.Context, p *Provider) error
	FindByID(ctx context.Context, id domain.ProviderID) (*Provider, error)
	FindByCode(ctx context.Context, code string) (*Provider, error)
	List(ctx context.Context) ([]*Provider, error)
}

// InMemoryStore keeps providers in process memory. Iteration order is
// insertion order so priority ties break on storage order, matching the
// documented arbitrary tie-break.
type InMemoryStore struct {
	mu        sync.RWMutex
	providers []*Provider
	byID      map[domain.ProviderID]*Provider
	byCode    map[string]*Provider
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[domain.ProviderID]*Provider),
		byCode: make(map[string]*Provider),
	}
}

func (s *InMemoryStore) CreateIfCodeAvailable(_ context.Context, p *Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToLower(p.Code)
	if _, exists := s.byCode[code]; exists {
		return sentinel.ErrConflict
	}
	clone := *p
	s.providers = append(s.providers, &clone)
	s.byID[p.ID] = &clone
	s.byCode[code] = &clone
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	*existing = *p
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ProviderID) (*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byID[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byCode[strings.ToLower(code)]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Provider, 0, len(s.providers))
	for _, p := range s.providers {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}
