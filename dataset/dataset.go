/*
Package dataset provides the numeric training datasets forests are
grown from: an n x d feature matrix paired with an n-length integer
label vector, loadable from memory, headerless CSV files or SQL
tables.
*/
package dataset

import (
	"fmt"
	"sort"
)

// DimensionMismatchError is returned when the number of feature rows
// does not match the number of labels.
type DimensionMismatchError struct {
	Rows   int
	Labels int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dataset has %d feature rows but %d labels", e.Rows, e.Labels)
}

// FileNotFoundError is returned when a dataset file cannot be opened
// for reading.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("dataset file %s cannot be read: %v", e.Path, e.Err)
}

/*
Dataset is a read-only collection of training samples: the feature
matrix X, the raw integer labels Y, and the class ids obtained by
mapping the sorted distinct labels to 0..k-1. It is safe for
concurrent readers; growth workers share one Dataset and never write
through it.
*/
type Dataset struct {
	X [][]float64
	Y []int

	// Classes holds the distinct raw labels in ascending order;
	// ClassIDs[i] is the index of Y[i] within Classes.
	Classes  []int
	ClassIDs []int
}

/*
New takes a feature matrix and a label vector and returns the Dataset
pairing them, or a DimensionMismatchError if their row counts differ.
Rows of the matrix must all have the same length; the first row fixes
the feature dimensionality.
*/
func New(x [][]float64, y []int) (*Dataset, error) {
	if len(x) != len(y) {
		return nil, &DimensionMismatchError{Rows: len(x), Labels: len(y)}
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("dataset has no samples")
	}
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("dataset row %d has %d features, expected %d", i, len(row), d)
		}
	}
	ds := &Dataset{X: x, Y: y}
	ds.indexClasses()
	return ds, nil
}

func (ds *Dataset) indexClasses() {
	seen := make(map[int]bool)
	for _, label := range ds.Y {
		if !seen[label] {
			seen[label] = true
			ds.Classes = append(ds.Classes, label)
		}
	}
	sort.Ints(ds.Classes)
	byLabel := make(map[int]int, len(ds.Classes))
	for id, label := range ds.Classes {
		byLabel[label] = id
	}
	ds.ClassIDs = make([]int, len(ds.Y))
	for i, label := range ds.Y {
		ds.ClassIDs[i] = byLabel[label]
	}
}

// Count returns the number of samples in the dataset.
func (ds *Dataset) Count() int {
	return len(ds.X)
}

// NumFeatures returns the feature dimensionality of the dataset.
func (ds *Dataset) NumFeatures() int {
	if len(ds.X) == 0 {
		return 0
	}
	return len(ds.X[0])
}

// NumClasses returns the number of distinct labels in the dataset.
func (ds *Dataset) NumClasses() int {
	return len(ds.Classes)
}

// ClassCounts returns the per-class-id sample counts for the given
// sample indices.
func (ds *Dataset) ClassCounts(indices []int) []int {
	counts := make([]int, ds.NumClasses())
	for _, i := range indices {
		counts[ds.ClassIDs[i]]++
	}
	return counts
}
