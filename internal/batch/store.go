package batch

import (
	"context"
	"time"

	"realname/pkg/domain"
)

// BatchStore persists batches. Every mutation commits before the caller moves
// to the next unit of work.
type BatchStore interface {
	Create(ctx context.Context, b *Batch) error
	Update(ctx context.Context, b *Batch) error
	FindByID(ctx context.Context, id domain.BatchID) (*Batch, error)
	// FindByContentHash returns every batch sharing the hash, oldest first.
	FindByContentHash(ctx context.Context, hash string) ([]*Batch, error)
	// FindStuck returns PROCESSING batches whose run started before cutoff.
	FindStuck(ctx context.Context, cutoff time.Time) ([]*Batch, error)
}

// RecordStore persists batch records.
type RecordStore interface {
	Create(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	// ListByBatch returns a batch's records ordered by row number.
	ListByBatch(ctx context.Context, batchID domain.BatchID) ([]*Record, error)
	// DeleteByBatch removes every record of a batch.
	DeleteByBatch(ctx context.Context, batchID domain.BatchID) error
}
