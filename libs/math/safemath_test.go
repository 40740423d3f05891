package math_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	imath "github.com/inery/inery/libs/math"
)

func TestSaturatingAddUint32(t *testing.T) {
	assert.EqualValues(t, 3, imath.SaturatingAddUint32(1, 2))
	assert.EqualValues(t, math.MaxUint32, imath.SaturatingAddUint32(math.MaxUint32, 1))
	assert.EqualValues(t, math.MaxUint32, imath.SaturatingAddUint32(math.MaxUint32-5, 10))
	assert.EqualValues(t, math.MaxUint32, imath.SaturatingAddUint32(math.MaxUint32, math.MaxUint32))
}

func TestSaturatingAddUint32Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint32().Draw(t, "a").(uint32)
		b := rapid.Uint32().Draw(t, "b").(uint32)

		sum := imath.SaturatingAddUint32(a, b)
		exact := uint64(a) + uint64(b)
		if exact > math.MaxUint32 {
			require.EqualValues(t, math.MaxUint32, sum)
		} else {
			require.EqualValues(t, exact, sum)
		}
		require.GreaterOrEqual(t, sum, a)
		require.GreaterOrEqual(t, sum, b)
	})
}

func TestSafeAddUint32(t *testing.T) {
	assert.EqualValues(t, 10, imath.SafeAddUint32(4, 6))
	assert.Panics(t, func() { imath.SafeAddUint32(math.MaxUint32, 1) })
}

func TestSafeConvertUint16(t *testing.T) {
	v, err := imath.SafeConvertUint16(65535)
	require.NoError(t, err)
	assert.EqualValues(t, 65535, v)

	_, err = imath.SafeConvertUint16(65536)
	assert.ErrorIs(t, err, imath.ErrOverflowUint16)

	_, err = imath.SafeConvertUint16(-1)
	assert.ErrorIs(t, err, imath.ErrOverflowUint16)
}
