// Package batch runs the file-import pipeline: one Batch per uploaded file,
// one Record per parsed row, processed strictly in row order to a terminal
// outcome.
package batch

import (
	"time"

	"realname/pkg/domain"
)

// BatchStatus is the batch lifecycle state.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchFailed, BatchCancelled:
		return true
	}
	return false
}

// RecordStatus is the per-row lifecycle state.
type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordSuccess RecordStatus = "success"
	RecordFailed  RecordStatus = "failed"
	RecordSkipped RecordStatus = "skipped"
)

// Batch tracks one uploaded file end to end. TotalRecords is fixed at parse
// time; the success/failed/skipped counters are always recomputed from the
// record set, never incremented in place.
type Batch struct {
	ID           domain.BatchID
	FileName     string
	FileType     string
	FileSize     int64
	ContentHash  string
	Status       BatchStatus
	TotalRecords int
	Processed    int
	Succeeded    int
	Failed       int
	Skipped      int
	StartTime    *time.Time
	FinishTime   *time.Time
	Duration     time.Duration
	Config       map[string]string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Record is one row of a batch. It holds a weak reference to the
// authentication record it creates but does not own it.
type Record struct {
	ID               domain.RecordID
	BatchID          domain.BatchID
	RowNumber        int
	Status           RecordStatus
	RawData          map[string]string
	ProcessedData    map[string]string
	AuthenticationID domain.AuthenticationID
	ErrorMessage     string
	ValidationErrors []string
	ProcessingTimeMs int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Counts is the aggregate view over a batch's record set.
type Counts struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Pending   int
}

// Aggregate reduces a record set to its counts. It is the single source of
// truth for batch counters, used both for the periodic mid-run recompute and
// the final one, so a crash-restart can never leave counters drifted from the
// stored records.
func Aggregate(records []*Record) Counts {
	c := Counts{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case RecordSuccess:
			c.Succeeded++
		case RecordFailed:
			c.Failed++
		case RecordSkipped:
			c.Skipped++
		default:
			c.Pending++
		}
	}
	c.Processed = c.Succeeded + c.Failed + c.Skipped
	return c
}

// Apply copies the counts onto the batch, leaving TotalRecords untouched.
func (b *Batch) Apply(c Counts) {
	b.Processed = c.Processed
	b.Succeeded = c.Succeeded
	b.Failed = c.Failed
	b.Skipped = c.Skipped
}
