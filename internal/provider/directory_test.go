package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realname/internal/method"
	dErrors "realname/pkg/domain-errors"
)

func newTestProvider(t *testing.T, code string, priority int, methods ...method.Method) *Provider {
	t.Helper()
	p, err := New("Provider "+code, code, TypeAggregator, methods, "https://verify.example.com/"+code, priority)
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	t.Run("rejects empty code", func(t *testing.T) {
		_, err := New("Name", "  ", TypeBank, []method.Method{method.BankCardThree}, "https://x", 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects empty method list", func(t *testing.T) {
		_, err := New("Name", "code", TypeBank, nil, "https://x", 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects unknown methods", func(t *testing.T) {
		_, err := New("Name", "code", TypeBank, []method.Method{method.Method("psychic")}, "https://x", 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects negative priority", func(t *testing.T) {
		_, err := New("Name", "code", TypeBank, []method.Method{method.BankCardThree}, "https://x", -1)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("new providers start active and valid", func(t *testing.T) {
		p := newTestProvider(t, "gov-a", 5, method.PersonalTwo)
		assert.True(t, p.Active)
		assert.True(t, p.Valid)
		assert.False(t, p.ID.IsNil())
	})
}

func TestProviderSupports(t *testing.T) {
	p := newTestProvider(t, "carrier-a", 0, method.CarrierThree)

	t.Run("support comes from the allow-list, not the type", func(t *testing.T) {
		assert.True(t, p.Supports(method.CarrierThree))
		assert.False(t, p.Supports(method.PersonalTwo))
		assert.False(t, p.Supports(method.BankCardFour))
	})
}

func TestDirectoryRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and finds by code", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		p := newTestProvider(t, "gov-a", 1, method.PersonalTwo)
		require.NoError(t, dir.Register(ctx, p))

		found, err := dir.FindByCode(ctx, "gov-a")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("duplicate code conflicts regardless of case", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		require.NoError(t, dir.Register(ctx, newTestProvider(t, "gov-a", 1, method.PersonalTwo)))

		err := dir.Register(ctx, newTestProvider(t, "GOV-A", 2, method.PersonalTwo))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("missing provider maps to not found", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		_, err := dir.FindByCode(ctx, "nope")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDirectorySelectBest(t *testing.T) {
	ctx := context.Background()

	t.Run("highest priority wins", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		low := newTestProvider(t, "low", 1, method.PersonalTwo)
		high := newTestProvider(t, "high", 9, method.PersonalTwo)
		require.NoError(t, dir.Register(ctx, low))
		require.NoError(t, dir.Register(ctx, high))

		best, err := dir.SelectBest(ctx, method.PersonalTwo)
		require.NoError(t, err)
		assert.Equal(t, high.ID, best.ID)
	})

	t.Run("priority ties break on registration order", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		first := newTestProvider(t, "first", 5, method.PersonalTwo)
		second := newTestProvider(t, "second", 5, method.PersonalTwo)
		require.NoError(t, dir.Register(ctx, first))
		require.NoError(t, dir.Register(ctx, second))

		best, err := dir.SelectBest(ctx, method.PersonalTwo)
		require.NoError(t, err)
		assert.Equal(t, first.ID, best.ID)
	})

	t.Run("inactive and invalid providers are skipped", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())

		inactive := newTestProvider(t, "inactive", 9, method.PersonalTwo)
		inactive.Active = false
		require.NoError(t, dir.Register(ctx, inactive))

		invalid := newTestProvider(t, "invalid", 8, method.PersonalTwo)
		invalid.Valid = false
		require.NoError(t, dir.Register(ctx, invalid))

		fallback := newTestProvider(t, "fallback", 1, method.PersonalTwo)
		require.NoError(t, dir.Register(ctx, fallback))

		best, err := dir.SelectBest(ctx, method.PersonalTwo)
		require.NoError(t, err)
		assert.Equal(t, fallback.ID, best.ID)
	})

	t.Run("method filter uses the allow-list", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		bank := newTestProvider(t, "bank", 9, method.BankCardThree, method.BankCardFour)
		require.NoError(t, dir.Register(ctx, bank))

		_, err := dir.SelectBest(ctx, method.CarrierThree)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("no providers at all is not found", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		_, err := dir.SelectBest(ctx, method.PersonalTwo)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDirectoryUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("updated flags affect selection", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		p := newTestProvider(t, "gov-a", 5, method.PersonalTwo)
		require.NoError(t, dir.Register(ctx, p))

		p.Active = false
		require.NoError(t, dir.Update(ctx, p))

		_, err := dir.SelectBest(ctx, method.PersonalTwo)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("updating an unknown provider is not found", func(t *testing.T) {
		dir := NewDirectory(NewInMemoryStore())
		err := dir.Update(ctx, newTestProvider(t, "ghost", 1, method.PersonalTwo))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
