package split

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForestType(t *testing.T) {
	cases := []struct {
		name  string
		ft    ForestType
		known bool
	}{
		{"rfBase", RFBase, true},
		{"binnedBase", BinnedBase, true},
		{"rerf", RerF, true},
		{"binnedBaseRerF", RerF, true},
		{"binnedBaseTern", RerFTernary, true},
		{"S-RerF", SRerF, true},
		{" rfBase ", RFBase, true},
		{"uf", RFBase, false},
		{"", RFBase, false},
	}
	for _, c := range cases {
		ft, known := ParseForestType(c.name)
		assert.Equal(t, c.ft, ft, "parsing %q", c.name)
		assert.Equal(t, c.known, known, "parsing %q", c.name)
	}
}

func TestProjectAxis(t *testing.T) {
	fn := Function{Kind: Axis, Feature: 2}
	assert.Equal(t, 3.5, fn.Project([]float64{1, 2, 3.5, 4}))
	assert.Equal(t, 1, fn.NumFeatures())
}

func TestProjectSparse(t *testing.T) {
	fn := Function{
		Kind:     Sparse,
		Features: []int32{0, 3},
		Weights:  []float64{1, -1},
	}
	assert.Equal(t, -3.0, fn.Project([]float64{1, 2, 3, 4}))
	assert.Equal(t, 2, fn.NumFeatures())
}

// TestProjectNaN verifies that projections touching a missing value
// are NaN, so the sample routes right at any threshold.
func TestProjectNaN(t *testing.T) {
	fn := Function{
		Kind:     Sparse,
		Features: []int32{0, 1},
		Weights:  []float64{1, 1},
	}
	v := fn.Project([]float64{1, math.NaN()})
	require.True(t, math.IsNaN(v))
	assert.False(t, v <= math.Inf(1))
}

func TestFunctionEqual(t *testing.T) {
	axis := Function{Kind: Axis, Feature: 1}
	sparse := Function{Kind: Sparse, Features: []int32{1}, Weights: []float64{1}}
	assert.True(t, axis.Equal(&Function{Kind: Axis, Feature: 1}))
	assert.False(t, axis.Equal(&Function{Kind: Axis, Feature: 2}))
	assert.False(t, axis.Equal(&sparse))
	assert.True(t, sparse.Equal(&Function{Kind: Sparse, Features: []int32{1}, Weights: []float64{1}}))
	assert.False(t, sparse.Equal(&Function{Kind: Sparse, Features: []int32{1}, Weights: []float64{-1}}))
}
