package forest

import (
	"bytes"
	"testing"

	"github.com/MaiRajborirug/SPORF/split"
	"github.com/MaiRajborirug/SPORF/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump returns a tree with a single axis split on x[0] <= threshold
// and the given leaf class ids.
func stump(index int, threshold float64, leftClass, rightClass int) *tree.Tree {
	tr := tree.New(index)
	root := tr.Append(tree.Node{
		Split:     split.Function{Kind: split.Axis, Feature: 0},
		Threshold: threshold,
		Left:      tree.NoChild,
		Right:     tree.NoChild,
		Samples:   2,
	})
	left := tr.Append(tree.Node{Left: tree.NoChild, Right: tree.NoChild, Label: leftClass, Samples: 1})
	right := tr.Append(tree.Node{Left: tree.NoChild, Right: tree.NoChild, Label: rightClass, Samples: 1})
	tr.Nodes[root].Left = left
	tr.Nodes[root].Right = right
	return tr
}

// leaf returns a single-node tree always voting the given class id.
func leaf(index, class int) *tree.Tree {
	tr := tree.New(index)
	tr.Append(tree.Node{Left: tree.NoChild, Right: tree.NoChild, Label: class, Samples: 1})
	return tr
}

func TestPredictMajority(t *testing.T) {
	f := &Forest{
		Trees: []*tree.Tree{
			stump(0, 1, 0, 1),
			stump(1, 1, 0, 1),
			stump(2, 10, 1, 0),
		},
		NumFeatures: 1,
		Classes:     []int{3, 7},
	}
	labels, err := f.Predict([][]float64{{0.5}, {5}})
	require.NoError(t, err)
	// {0.5}: votes 0,0,1 -> class id 0 -> raw label 3
	// {5}:   votes 1,1,1 -> class id 1 -> raw label 7
	assert.Equal(t, []int{3, 7}, labels)
}

// TestPredictTie verifies vote ties break towards the lowest class
// id.
func TestPredictTie(t *testing.T) {
	f := &Forest{
		Trees:       []*tree.Tree{leaf(0, 1), leaf(1, 0)},
		NumFeatures: 1,
		Classes:     []int{4, 9},
	}
	labels, err := f.Predict([][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, labels)
}

func TestPredictDimensionMismatch(t *testing.T) {
	f := &Forest{
		Trees:       []*tree.Tree{leaf(0, 0)},
		NumFeatures: 2,
		Classes:     []int{0},
	}
	_, err := f.Predict([][]float64{{1}})
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	f := &Forest{
		Trees:       []*tree.Tree{stump(0, 1, 0, 1), leaf(1, 1)},
		NumFeatures: 1,
		Classes:     []int{2, 5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, f))

	read, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.NumFeatures, read.NumFeatures)
	assert.Equal(t, f.Classes, read.Classes)
	require.Equal(t, f.NumTrees(), read.NumTrees())

	x := [][]float64{{0.5}, {3}}
	want, err := f.Predict(x)
	require.NoError(t, err)
	got, err := read.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadJSONEmpty(t *testing.T) {
	_, err := ReadJSON(bytes.NewReader([]byte(`{"trees":[],"numFeatures":1,"classes":[0]}`)))
	require.Error(t, err)
}
