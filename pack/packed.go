package pack

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

/*
PackedForest is a packed forest read back into memory: per bin, a
flat node array and projection table traversed exactly the way the
prediction engine traverses the on-disk artifact. It exists to prove
the layout transform preserved traversal semantics and to back the
predict command; feature matrices handed to Predict must match the
training feature dimensionality.
*/
type PackedForest struct {
	NumFeatures int
	Classes     []int
	Bins        []Bin
}

// Bin is one group of co-located trees of the packed layout.
type Bin struct {
	Roots       []uint32
	TreeIndices []uint32
	Nodes       []nodeRecord
	Proj        []projEntry
}

// NumTrees returns the total tree count across the bins.
func (pf *PackedForest) NumTrees() int {
	var n int
	for i := range pf.Bins {
		n += len(pf.Bins[i].Roots)
	}
	return n
}

// TreeCounts returns the per-bin tree counts.
func (pf *PackedForest) TreeCounts() []int {
	counts := make([]int, len(pf.Bins))
	for i := range pf.Bins {
		counts[i] = len(pf.Bins[i].Roots)
	}
	return counts
}

/*
Open reads the packed forest artifact at the given path. It returns
an IOError if the file cannot be read and a plain error if its
contents are not a valid packed forest.
*/
func Open(path string) (*PackedForest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "opening packed forest", Path: path, Err: err}
	}
	defer f.Close()
	r := bufio.NewReader(f)

	h, classes, err := readFileHeader(r)
	if err != nil {
		return nil, fmt.Errorf("reading packed forest %s: %v", path, err)
	}
	pf := &PackedForest{
		NumFeatures: int(h.NumFeatures),
		Classes:     classes,
		Bins:        make([]Bin, h.NumBins),
	}
	var totalTrees uint32
	for b := range pf.Bins {
		var bh binHeader
		if err := binary.Read(r, binary.LittleEndian, &bh); err != nil {
			return nil, fmt.Errorf("reading bin %d header of %s: %v", b, path, err)
		}
		bin := Bin{
			Roots:       make([]uint32, bh.NumTrees),
			TreeIndices: make([]uint32, bh.NumTrees),
			Nodes:       make([]nodeRecord, bh.NumNodes),
			Proj:        make([]projEntry, bh.NumProjEnts),
		}
		for _, part := range []interface{}{bin.Roots, bin.TreeIndices, bin.Nodes, bin.Proj} {
			if err := binary.Read(r, binary.LittleEndian, part); err != nil {
				return nil, fmt.Errorf("reading bin %d of %s: %v", b, path, err)
			}
		}
		totalTrees += bh.NumTrees
		pf.Bins[b] = bin
	}
	if totalTrees != h.NumTrees {
		return nil, fmt.Errorf("packed forest %s declares %d trees but its bins hold %d",
			path, h.NumTrees, totalTrees)
	}
	return pf, nil
}

/*
Predict takes a feature matrix and returns the majority-vote label
for every row, traversing every tree of every bin. Vote ties break
towards the lowest class id, matching the reference traversal of the
unpacked forest.
*/
func (pf *PackedForest) Predict(x [][]float64) ([]int, error) {
	labels := make([]int, len(x))
	votes := make([]int, len(pf.Classes))
	for i, sample := range x {
		if len(sample) != pf.NumFeatures {
			return nil, fmt.Errorf("sample %d has %d features, packed forest was trained on %d",
				i, len(sample), pf.NumFeatures)
		}
		for j := range votes {
			votes[j] = 0
		}
		for b := range pf.Bins {
			bin := &pf.Bins[b]
			for _, root := range bin.Roots {
				leaf := bin.traverse(root, sample)
				votes[bin.Nodes[leaf].Label]++
			}
		}
		best := 0
		for class, count := range votes {
			if count > votes[best] {
				best = class
			}
		}
		labels[i] = pf.Classes[best]
	}
	return labels, nil
}

// traverse walks one tree of the bin from the given root slot and
// returns the slot of the leaf the sample reaches.
func (bin *Bin) traverse(root uint32, sample []float64) uint32 {
	slot := root
	for {
		n := &bin.Nodes[slot]
		if n.Kind == kindLeaf {
			return slot
		}
		var v float64
		if n.Kind == kindAxis {
			v = sample[n.Feature]
		} else {
			for _, e := range bin.Proj[n.ProjOff : n.ProjOff+n.ProjLen] {
				v += e.Weight * sample[e.Feature]
			}
		}
		if v <= n.Threshold {
			slot = uint32(n.Left)
		} else {
			slot = uint32(n.Right)
		}
	}
}
