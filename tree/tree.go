/*
Package tree provides the arena-allocated decision trees a forest is
made of. A tree owns a flat slice of nodes referencing each other by
index; node 0 is the root. Trees are immutable once growth completes.
*/
package tree

import (
	"fmt"
)

/*
Tree is an owned hierarchy of nodes rooted at node 0. Index is the
position of the tree within its forest; it is assigned before growth
is dispatched and determines both the tree's random stream and its
place in the packed layout, independently of which worker grows it.
*/
type Tree struct {
	Index int    `json:"index"`
	Nodes []Node `json:"nodes"`
}

// New returns an empty tree with the given forest index.
func New(index int) *Tree {
	return &Tree{Index: index}
}

// Root returns the root node or nil for an empty tree.
func (t *Tree) Root() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return &t.Nodes[0]
}

/*
Append adds a node to the tree's arena and returns its index. The
caller patches the parent's child slots once both children exist.
*/
func (t *Tree) Append(n Node) int32 {
	t.Nodes = append(t.Nodes, n)
	return int32(len(t.Nodes) - 1)
}

/*
Apply takes a sample and returns the index of the leaf the sample
reaches, or an error for an empty tree.
*/
func (t *Tree) Apply(sample []float64) (int32, error) {
	if len(t.Nodes) == 0 {
		return 0, fmt.Errorf("empty tree cannot be traversed")
	}
	var i int32
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return i, nil
		}
		if n.Split.Project(sample) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

/*
PredictClass takes a sample and returns the majority class id of the
leaf the sample reaches.
*/
func (t *Tree) PredictClass(sample []float64) (int, error) {
	leaf, err := t.Apply(sample)
	if err != nil {
		return 0, err
	}
	return t.Nodes[leaf].Label, nil
}

// NumNodes returns the number of nodes in the tree.
func (t *Tree) NumNodes() int {
	return len(t.Nodes)
}

// Depth returns the depth of the tree: the length of the longest
// root-to-leaf path, with a single-node tree having depth 0.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	return t.depthBelow(0)
}

func (t *Tree) depthBelow(i int32) int {
	n := &t.Nodes[i]
	if n.IsLeaf() {
		return 0
	}
	l := t.depthBelow(n.Left)
	r := t.depthBelow(n.Right)
	if r > l {
		l = r
	}
	return l + 1
}

/*
Walk runs the given function on every node index in depth-first
preorder, aborting and returning the first error the function
returns.
*/
func (t *Tree) Walk(f func(i int32, n *Node) error) error {
	if len(t.Nodes) == 0 {
		return nil
	}
	return t.walk(0, f)
}

func (t *Tree) walk(i int32, f func(i int32, n *Node) error) error {
	n := &t.Nodes[i]
	if err := f(i, n); err != nil {
		return err
	}
	if n.IsLeaf() {
		return nil
	}
	if err := t.walk(n.Left, f); err != nil {
		return err
	}
	return t.walk(n.Right, f)
}
