/*
Package forest provides the ordered tree ensembles produced by
growth, the stores grown trees are collected through, and a reference
traversal used to validate packed layouts.
*/
package forest

import (
	"fmt"

	"github.com/MaiRajborirug/SPORF/tree"
)

/*
Forest is an ordered sequence of grown trees over a common dataset
geometry. Tree order follows the tree indices assigned before growth
was dispatched, never the order workers completed in. The forest is
owned by the training run until it is handed to the packing engine.
*/
type Forest struct {
	Trees []*tree.Tree `json:"trees"`

	// NumFeatures is the feature dimensionality the forest was
	// trained on; feature matrices handed to Predict must match it.
	NumFeatures int `json:"numFeatures"`
	// Classes maps class ids (the values stored in leaves) back to
	// the raw integer labels of the training dataset.
	Classes []int `json:"classes"`
}

// NumTrees returns the number of trees in the forest.
func (f *Forest) NumTrees() int {
	return len(f.Trees)
}

/*
Predict takes a feature matrix and returns the majority-vote label
for every row, traversing every tree of the unpacked forest. It is
the reference traversal packed layouts must agree with. Vote ties
break towards the lowest class id, as they do in packed traversal.
*/
func (f *Forest) Predict(x [][]float64) ([]int, error) {
	labels := make([]int, len(x))
	votes := make([]int, len(f.Classes))
	for i, sample := range x {
		if len(sample) != f.NumFeatures {
			return nil, fmt.Errorf("sample %d has %d features, forest was trained on %d",
				i, len(sample), f.NumFeatures)
		}
		for j := range votes {
			votes[j] = 0
		}
		for _, t := range f.Trees {
			class, err := t.PredictClass(sample)
			if err != nil {
				return nil, fmt.Errorf("traversing tree %d: %v", t.Index, err)
			}
			votes[class]++
		}
		best := 0
		for class, count := range votes {
			if count > votes[best] {
				best = class
			}
		}
		labels[i] = f.Classes[best]
	}
	return labels, nil
}

// NumNodes returns the total node count across the forest.
func (f *Forest) NumNodes() int {
	var n int
	for _, t := range f.Trees {
		n += t.NumNodes()
	}
	return n
}
