package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"realname/pkg/domain"
	"realname/pkg/platform/sentinel"
)

// InMemoryBatchStore keeps batches in process memory.
type InMemoryBatchStore struct {
	mu      sync.RWMutex
	batches []*Batch
	byID    map[domain.BatchID]*Batch
}

func NewInMemoryBatchStore() *InMemoryBatchStore {
	return &InMemoryBatchStore{byID: make(map[domain.BatchID]*Batch)}
}

func (s *InMemoryBatchStore) Create(_ context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[b.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneBatch(b)
	s.batches = append(s.batches, clone)
	s.byID[b.ID] = clone
	return nil
}

func (s *InMemoryBatchStore) Update(_ context.Context, b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[b.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	*existing = *cloneBatch(b)
	return nil
}

func (s *InMemoryBatchStore) FindByID(_ context.Context, id domain.BatchID) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.byID[id]; ok {
		return cloneBatch(b), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryBatchStore) FindByContentHash(_ context.Context, hash string) ([]*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Batch
	for _, b := range s.batches {
		if b.ContentHash == hash {
			out = append(out, cloneBatch(b))
		}
	}
	return out, nil
}

func (s *InMemoryBatchStore) FindStuck(_ context.Context, cutoff time.Time) ([]*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Batch
	for _, b := range s.batches {
		if b.Status == BatchProcessing && b.StartTime != nil && b.StartTime.Before(cutoff) {
			out = append(out, cloneBatch(b))
		}
	}
	return out, nil
}

func cloneBatch(b *Batch) *Batch {
	clone := *b
	if b.Config != nil {
		clone.Config = make(map[string]string, len(b.Config))
		for k, v := range b.Config {
			clone.Config[k] = v
		}
	}
	return &clone
}

// InMemoryRecordStore keeps batch records in process memory.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	byID    map[domain.RecordID]*Record
	byBatch map[domain.BatchID][]*Record
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		byID:    make(map[domain.RecordID]*Record),
		byBatch: make(map[domain.BatchID][]*Record),
	}
}

func (s *InMemoryRecordStore) Create(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := cloneRecord(r)
	s.byID[r.ID] = clone
	s.byBatch[r.BatchID] = append(s.byBatch[r.BatchID], clone)
	return nil
}

func (s *InMemoryRecordStore) Update(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	*existing = *cloneRecord(r)
	return nil
}

func (s *InMemoryRecordStore) ListByBatch(_ context.Context, batchID domain.BatchID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.byBatch[batchID]))
	for _, r := range s.byBatch[batchID] {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	return out, nil
}

func (s *InMemoryRecordStore) DeleteByBatch(_ context.Context, batchID domain.BatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.byBatch[batchID] {
		delete(s.byID, r.ID)
	}
	delete(s.byBatch, batchID)
	return nil
}

func cloneRecord(r *Record) *Record {
	clone := *r
	if r.RawData != nil {
		clone.RawData = make(map[string]string, len(r.RawData))
		for k, v := range r.RawData {
			clone.RawData[k] = v
		}
	}
	if r.ProcessedData != nil {
		clone.ProcessedData = make(map[string]string, len(r.ProcessedData))
		for k, v := range r.ProcessedData {
			clone.ProcessedData[k] = v
		}
	}
	if r.ValidationErrors != nil {
		clone.ValidationErrors = append([]string(nil), r.ValidationErrors...)
	}
	return &clone
}
