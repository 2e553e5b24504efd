package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	got, err := Add(40, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	_, err = Add(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSub(t *testing.T) {
	got, err := Sub(42, 40)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got)

	_, err = Sub(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMul(t *testing.T) {
	got, err := Mul(6, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	_, err = Mul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDiv(t *testing.T) {
	got, err := Div(10000, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3333), got)

	_, err = Div(1, 0)
	assert.ErrorIs(t, err, ErrOverflow)
}
