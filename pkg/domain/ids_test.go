package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "realname/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBatchID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseBatchID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRecordID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseBatchID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, BatchID(valid), id)
	})
}

// TestTypeDistinction verifies IDs stay distinct types at compile time.
func TestTypeDistinction(t *testing.T) {
	batchID := NewBatchID()
	recordID := NewRecordID()

	// These would fail to compile if types were interchangeable:
	// var _ BatchID = recordID   // compile error
	// var _ RecordID = batchID   // compile error

	assert.NotEqual(t, uuid.UUID(batchID), uuid.UUID(recordID))
	assert.False(t, batchID.IsNil())
}
