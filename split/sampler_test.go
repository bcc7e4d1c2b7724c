package split

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisSamplerDistinctFeatures(t *testing.T) {
	as := NewAxisSampler(10, 4)
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		candidates := as.Candidates(r)
		require.Len(t, candidates, 4)
		seen := make(map[int32]bool)
		for _, c := range candidates {
			assert.Equal(t, Axis, c.Kind)
			assert.GreaterOrEqual(t, c.Feature, int32(0))
			assert.Less(t, c.Feature, int32(10))
			assert.False(t, seen[c.Feature], "feature %d sampled twice", c.Feature)
			seen[c.Feature] = true
		}
	}
}

// TestAxisSamplerMtryClamp verifies mtry larger than the feature
// count yields every feature exactly once.
func TestAxisSamplerMtryClamp(t *testing.T) {
	as := NewAxisSampler(3, 10)
	r := rand.New(rand.NewSource(1))
	candidates := as.Candidates(r)
	require.Len(t, candidates, 3)
}

// TestAxisSamplerDeterminism verifies the same seed draws the same
// candidate sequence.
func TestAxisSamplerDeterminism(t *testing.T) {
	a := NewAxisSampler(20, 5).Candidates(rand.New(rand.NewSource(42)))
	b := NewAxisSampler(20, 5).Candidates(rand.New(rand.NewSource(42)))
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.True(t, a[i].Equal(&b[i]))
	}
}

func TestSparseSamplerBounds(t *testing.T) {
	ss := NewSparseSampler(8, 6, 1.5, false)
	r := rand.New(rand.NewSource(3))
	for round := 0; round < 50; round++ {
		candidates := ss.Candidates(r)
		require.Len(t, candidates, 6)
		for _, c := range candidates {
			assert.Equal(t, Sparse, c.Kind)
			nnz := len(c.Features)
			assert.GreaterOrEqual(t, nnz, 1)
			assert.LessOrEqual(t, nnz, 8)
			seen := make(map[int32]bool)
			for i, ft := range c.Features {
				assert.False(t, seen[ft], "feature %d combined twice", ft)
				seen[ft] = true
				assert.Equal(t, 1.0, c.Weights[i])
			}
		}
	}
}

func TestSparseSamplerTernaryWeights(t *testing.T) {
	ss := NewSparseSampler(8, 6, 2.0, true)
	r := rand.New(rand.NewSource(3))
	sawNegative := false
	for round := 0; round < 50; round++ {
		for _, c := range ss.Candidates(r) {
			for _, w := range c.Weights {
				assert.True(t, w == 1.0 || w == -1.0, "weight %f outside {-1, +1}", w)
				if w == -1.0 {
					sawNegative = true
				}
			}
		}
	}
	assert.True(t, sawNegative)
}

func TestPatchSamplerRejectsOversizedPatch(t *testing.T) {
	_, err := NewPatchSampler(4, 4, 1, 5, 1, 4, 3)
	require.Error(t, err)
}

// TestPatchSamplerRectangles verifies candidates cover contiguous
// in-bounds rectangles of the row-major image.
func TestPatchSamplerRectangles(t *testing.T) {
	const height, width = 5, 7
	ps, err := NewPatchSampler(height, width, 1, 3, 2, 4, 8)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(11))
	for round := 0; round < 50; round++ {
		candidates := ps.Candidates(r)
		require.Len(t, candidates, 8)
		for _, c := range candidates {
			require.Equal(t, Patch, c.Kind)
			require.NotEmpty(t, c.Features)
			top := int(c.Features[0]) / width
			left := int(c.Features[0]) % width
			// recover the patch width from the first row break
			w := len(c.Features)
			for i := 1; i < len(c.Features); i++ {
				if int(c.Features[i])/width != top {
					w = i
					break
				}
			}
			h := len(c.Features) / w
			require.Equal(t, h*w, len(c.Features))
			assert.GreaterOrEqual(t, h, 1)
			assert.LessOrEqual(t, h, 3)
			assert.GreaterOrEqual(t, w, 2)
			assert.LessOrEqual(t, w, 4)
			assert.LessOrEqual(t, top+h, height)
			assert.LessOrEqual(t, left+w, width)
			for row := 0; row < h; row++ {
				for col := 0; col < w; col++ {
					want := int32((top+row)*width + (left + col))
					assert.Equal(t, want, c.Features[row*w+col])
				}
			}
			for _, weight := range c.Weights {
				assert.Equal(t, 1.0, weight)
			}
		}
	}
}

func TestPoissonDegenerateMean(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, poisson(r, 0))
	assert.Equal(t, 0, poisson(r, -1))
}
