package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimensionMismatch(t *testing.T) {
	_, err := New([][]float64{{1, 2}, {3, 4}}, []int{0})
	require.Error(t, err)
	_, ok := err.(*DimensionMismatchError)
	assert.True(t, ok, "expected a DimensionMismatchError, got %T", err)
}

func TestNewRaggedRows(t *testing.T) {
	_, err := New([][]float64{{1, 2}, {3}}, []int{0, 1})
	require.Error(t, err)
}

func TestNewEmpty(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}

// TestClassIndexing verifies raw labels map to sorted 0..k-1 class
// ids regardless of the order they appear in.
func TestClassIndexing(t *testing.T) {
	ds, err := New(
		[][]float64{{1}, {2}, {3}, {4}},
		[]int{7, 2, 7, 5},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 7}, ds.Classes)
	assert.Equal(t, []int{2, 0, 2, 1}, ds.ClassIDs)
	assert.Equal(t, 3, ds.NumClasses())
	assert.Equal(t, 4, ds.Count())
	assert.Equal(t, 1, ds.NumFeatures())
}

func TestClassCounts(t *testing.T) {
	ds, err := New(
		[][]float64{{1}, {2}, {3}, {4}},
		[]int{0, 1, 1, 0},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, ds.ClassCounts([]int{0, 1, 2, 3}))
	assert.Equal(t, []int{1, 2}, ds.ClassCounts([]int{0, 1, 2}))
	assert.Equal(t, []int{0, 0}, ds.ClassCounts(nil))
}
