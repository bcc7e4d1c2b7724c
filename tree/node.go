package tree

import (
	"github.com/MaiRajborirug/SPORF/split"
)

// NoChild marks the child slots of leaf nodes.
const NoChild int32 = -1

/*
Node is a node of a grown tree. Nodes live in their tree's arena and
reference their children by index into it, so a tree never aliases
another tree's nodes and can be handed between goroutines once grown.

Internal nodes carry the chosen split function and threshold and the
indices of their two children; samples whose projection is at most the
threshold go left, all others (including NaN projections) go right.
Leaf nodes carry the class-count summary of the training samples that
reached them and the majority class id.
*/
type Node struct {
	Split     split.Function `json:"split"`
	Threshold float64        `json:"threshold"`
	Left      int32          `json:"left"`
	Right     int32          `json:"right"`

	// ClassCounts is indexed by class id; Label is the majority
	// class id, with ties broken towards the lowest id.
	ClassCounts []int `json:"classCounts,omitempty"`
	Label       int   `json:"label"`
	// Samples is the number of training samples that reached the
	// node. The packer uses it as a traversal-frequency estimate
	// when no per-sample statistics are supplied.
	Samples int `json:"samples"`
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left == NoChild
}
