package vault

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	t.Run("Floors", func(t *testing.T) {
		got, err := mulDiv(1_000_000, 1_000_000, 1_500_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(666_666), got)
	})

	t.Run("IntermediateExceedsUint64", func(t *testing.T) {
		// a*b wraps uint64 but the quotient fits.
		got, err := mulDiv(math.MaxUint64, 2, 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64/2), got)
	})

	t.Run("ResultTooLarge", func(t *testing.T) {
		_, err := mulDiv(math.MaxUint64, 2, 1)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("ZeroDivisor", func(t *testing.T) {
		_, err := mulDiv(1, 1, 0)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestFeeOf(t *testing.T) {
	got, err := feeOf(1_000_000, 250)
	require.NoError(t, err)
	assert.Equal(t, uint64(25_000), got)

	got, err = feeOf(39, 250) // floors to zero
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestCheckedAdd(t *testing.T) {
	got, err := checkedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got)

	_, err = checkedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
