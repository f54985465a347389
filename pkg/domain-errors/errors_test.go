package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realname/pkg/platform/sentinel"
)

func TestWrapPreservesChain(t *testing.T) {
	err := Wrap(sentinel.ErrNotFound, CodeNotFound, "batch not found")

	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "no-op"))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeRateLimited, CodeOf(New(CodeRateLimited, "too many attempts")))
}

func TestHasCodeFindsOutermostCode(t *testing.T) {
	inner := New(CodeInvalidInput, "bad checksum")
	outer := fmt.Errorf("processing row 3: %w", inner)

	assert.True(t, HasCode(outer, CodeInvalidInput))
	assert.Equal(t, "bad checksum", MessageOf(outer))
}
