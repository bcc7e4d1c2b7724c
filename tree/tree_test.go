package tree

import (
	"math"
	"testing"

	"github.com/MaiRajborirug/SPORF/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stumpTree builds a single axis split on x[0] <= 1 with leaf labels
// 0 (left) and 1 (right).
func stumpTree(t *testing.T) *Tree {
	t.Helper()
	tr := New(0)
	root := tr.Append(Node{
		Split:     split.Function{Kind: split.Axis, Feature: 0},
		Threshold: 1,
		Left:      NoChild,
		Right:     NoChild,
		Samples:   4,
	})
	left := tr.Append(Node{Left: NoChild, Right: NoChild, Label: 0, Samples: 2})
	right := tr.Append(Node{Left: NoChild, Right: NoChild, Label: 1, Samples: 2})
	tr.Nodes[root].Left = left
	tr.Nodes[root].Right = right
	return tr
}

func TestApply(t *testing.T) {
	tr := stumpTree(t)
	leaf, err := tr.Apply([]float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, tr.Nodes[0].Left, leaf)
	leaf, err = tr.Apply([]float64{1.0})
	require.NoError(t, err)
	assert.Equal(t, tr.Nodes[0].Left, leaf, "a projection equal to the threshold goes left")
	leaf, err = tr.Apply([]float64{2.0})
	require.NoError(t, err)
	assert.Equal(t, tr.Nodes[0].Right, leaf)
}

// TestApplyNaN verifies samples with NaN projections route right.
func TestApplyNaN(t *testing.T) {
	tr := stumpTree(t)
	label, err := tr.PredictClass([]float64{math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestApplyEmptyTree(t *testing.T) {
	_, err := New(0).Apply([]float64{1})
	require.Error(t, err)
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, New(0).Depth())
	single := New(0)
	single.Append(Node{Left: NoChild, Right: NoChild})
	assert.Equal(t, 0, single.Depth())
	assert.Equal(t, 1, stumpTree(t).Depth())
}

func TestWalkPreorder(t *testing.T) {
	tr := stumpTree(t)
	var visited []int32
	err := tr.Walk(func(i int32, n *Node) error {
		visited = append(visited, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, tr.Nodes[0].Left, tr.Nodes[0].Right}, visited)
}

func TestIsLeaf(t *testing.T) {
	tr := stumpTree(t)
	assert.False(t, tr.Nodes[0].IsLeaf())
	assert.True(t, tr.Nodes[tr.Nodes[0].Left].IsLeaf())
}
