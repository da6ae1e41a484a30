package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompensationRollsBackInReverseOrder(t *testing.T) {
	comp := NewCompensation()
	var order []string

	comp.Add("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	comp.Add("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, comp.Rollback(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)

	// Steps run at most once.
	require.NoError(t, comp.Rollback(context.Background()))
	assert.Len(t, order, 2)
}

func TestCompensationCommitSkipsRollback(t *testing.T) {
	comp := NewCompensation()
	called := false
	comp.Add("noop", func(ctx context.Context) error {
		called = true
		return nil
	})

	comp.Commit()
	require.NoError(t, comp.Rollback(context.Background()))
	assert.False(t, called)
}

func TestCompensationJoinsErrorsAndKeepsGoing(t *testing.T) {
	comp := NewCompensation()
	boom := errors.New("boom")
	ranFirst := false

	comp.Add("first", func(ctx context.Context) error {
		ranFirst = true
		return nil
	})
	comp.Add("second", func(ctx context.Context) error { return boom })

	err := comp.Rollback(context.Background())
	require.Error(t, err)
	assert.True(t, ranFirst)
	assert.ErrorIs(t, err, boom)

	var compErr *CompensationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, "second", compErr.Step)
}
