package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	t.Run("empty record set", func(t *testing.T) {
		c := Aggregate(nil)
		assert.Zero(t, c.Total)
		assert.Zero(t, c.Processed)
	})

	t.Run("mixed statuses", func(t *testing.T) {
		recs := []*Record{
			{Status: RecordSuccess},
			{Status: RecordSuccess},
			{Status: RecordFailed},
			{Status: RecordSkipped},
			{Status: RecordPending},
		}
		c := Aggregate(recs)

		assert.Equal(t, 5, c.Total)
		assert.Equal(t, 2, c.Succeeded)
		assert.Equal(t, 1, c.Failed)
		assert.Equal(t, 1, c.Skipped)
		assert.Equal(t, 1, c.Pending)
		assert.Equal(t, 4, c.Processed)
	})

	t.Run("processed is always the terminal sum", func(t *testing.T) {
		recs := []*Record{
			{Status: RecordSuccess},
			{Status: RecordFailed},
			{Status: RecordSkipped},
		}
		c := Aggregate(recs)
		assert.Equal(t, c.Succeeded+c.Failed+c.Skipped, c.Processed)
		assert.Equal(t, c.Total, c.Processed)
	})
}

func TestBatchApply(t *testing.T) {
	b := &Batch{TotalRecords: 7}
	b.Apply(Counts{Total: 7, Processed: 5, Succeeded: 3, Failed: 1, Skipped: 1})

	assert.Equal(t, 7, b.TotalRecords)
	assert.Equal(t, 5, b.Processed)
	assert.Equal(t, 3, b.Succeeded)
	assert.Equal(t, 1, b.Failed)
	assert.Equal(t, 1, b.Skipped)
}

func TestBatchStatusTerminal(t *testing.T) {
	assert.False(t, BatchPending.Terminal())
	assert.False(t, BatchProcessing.Terminal())
	assert.True(t, BatchCompleted.Terminal())
	assert.True(t, BatchFailed.Terminal())
	assert.True(t, BatchCancelled.Terminal())
}
