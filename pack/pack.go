package pack

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/split"
	"github.com/MaiRajborirug/SPORF/tree"
)

// IOError is returned when writing or reading a packing artifact
// fails. A failed write aborts the whole packing pass: transient
// files are removed and no partial final artifact is left behind.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

/*
Options configures a packing pass. NumBins is the number of tree bins
of the packed layout; callers usually default it to the core count.
Dataset optionally supplies the training samples: when present, the
packer replays them through the forest and lays out each bin so that
frequently visited nodes sit earlier and hot children sit next to
their parents. Without it, the per-node training sample counts grown
into the forest serve as the frequency estimate.
*/
type Options struct {
	NumBins int
	Dataset *dataset.Dataset
}

/*
Pack takes a context, a grown forest, the path of the artifact to
produce and packing options, and writes the packed forest to the
path, returning the packed forest read back from it.

The pass streams two transient side files next to the output: one
with the flattened node records of every bin, proportional to the
forest's node count, and one with per-sample traversal bookkeeping,
proportional to the dataset row count. It then folds them into the
final artifact and deletes them. The final artifact is written to a
temporary path and renamed into place, so an aborted pass never
leaves a partial artifact; any partially written transient file is
removed before returning an error.
*/
func Pack(ctx context.Context, f *forest.Forest, path string, opts Options) (*PackedForest, error) {
	if opts.NumBins < 1 {
		return nil, fmt.Errorf("packing into %d bins: bin count must be at least 1", opts.NumBins)
	}
	if f.NumTrees() == 0 {
		return nil, fmt.Errorf("cannot pack an empty forest")
	}

	nodesPath := path + ".nodes.tmp"
	visitsPath := path + ".visits.tmp"
	partialPath := path + ".partial"
	cleanup := []string{nodesPath, visitsPath, partialPath}
	failed := true
	defer func() {
		if failed {
			removeAll(cleanup)
		}
	}()

	visits, err := visitCounts(ctx, f, opts.Dataset, visitsPath)
	if err != nil {
		return nil, err
	}

	bins := assignBins(f.NumTrees(), opts.NumBins)
	if err := writeBinPayloads(ctx, f, bins, visits, nodesPath); err != nil {
		return nil, err
	}

	if err := foldArtifact(f, bins, nodesPath, partialPath); err != nil {
		return nil, err
	}
	if err := os.Rename(partialPath, path); err != nil {
		return nil, &IOError{Op: "finalizing packed forest", Path: path, Err: err}
	}
	removeAll([]string{nodesPath, visitsPath})
	failed = false

	return Open(path)
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

// assignBins partitions tree indices into contiguous blocks, with
// the leading bins taking the remainder tree each. The per-bin
// counts always sum to the forest's tree count.
func assignBins(numTrees, numBins int) [][]int {
	if numBins > numTrees {
		numBins = numTrees
	}
	base := numTrees / numBins
	rem := numTrees % numBins
	bins := make([][]int, numBins)
	next := 0
	for b := range bins {
		count := base
		if b < rem {
			count++
		}
		for i := 0; i < count; i++ {
			bins[b] = append(bins[b], next)
			next++
		}
	}
	return bins
}

/*
visitCounts returns the per-node traversal frequencies used to order
each bin's layout, one slice per tree indexed by arena node index.
With a dataset, every sample is replayed through every tree and a
per-sample bookkeeping record is streamed to the transient visits
file; without one, the training sample counts recorded in the nodes
are used and no visits file is written.
*/
func visitCounts(ctx context.Context, f *forest.Forest, ds *dataset.Dataset, visitsPath string) ([][]int64, error) {
	visits := make([][]int64, f.NumTrees())
	if ds == nil {
		for i, t := range f.Trees {
			visits[i] = make([]int64, t.NumNodes())
			for j := range t.Nodes {
				visits[i][j] = int64(t.Nodes[j].Samples)
			}
		}
		return visits, nil
	}

	for i, t := range f.Trees {
		visits[i] = make([]int64, t.NumNodes())
	}
	vf, err := os.Create(visitsPath)
	if err != nil {
		return nil, &IOError{Op: "creating transient visits file", Path: visitsPath, Err: err}
	}
	w := bufio.NewWriter(vf)
	for s, sample := range ds.X {
		if err := ctx.Err(); err != nil {
			vf.Close()
			return nil, err
		}
		var nodesVisited uint32
		for ti, t := range f.Trees {
			var idx int32
			for {
				visits[ti][idx]++
				nodesVisited++
				n := &t.Nodes[idx]
				if n.IsLeaf() {
					break
				}
				if n.Split.Project(sample) <= n.Threshold {
					idx = n.Left
				} else {
					idx = n.Right
				}
			}
		}
		record := struct {
			Sample       uint32
			NodesVisited uint32
		}{Sample: uint32(s), NodesVisited: nodesVisited}
		if err := binary.Write(w, binary.LittleEndian, record); err != nil {
			vf.Close()
			return nil, &IOError{Op: "writing transient visits file", Path: visitsPath, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		vf.Close()
		return nil, &IOError{Op: "flushing transient visits file", Path: visitsPath, Err: err}
	}
	if err := vf.Close(); err != nil {
		return nil, &IOError{Op: "closing transient visits file", Path: visitsPath, Err: err}
	}
	return visits, nil
}

/*
writeBinPayloads streams the complete payload of every bin (bin
header, root slots, forest indices, node records and projection
table) to the transient nodes file in final artifact order.
*/
func writeBinPayloads(ctx context.Context, f *forest.Forest, bins [][]int, visits [][]int64, nodesPath string) error {
	nf, err := os.Create(nodesPath)
	if err != nil {
		return &IOError{Op: "creating transient nodes file", Path: nodesPath, Err: err}
	}
	w := bufio.NewWriter(nf)
	for _, binTrees := range bins {
		if err := ctx.Err(); err != nil {
			nf.Close()
			return err
		}
		if err := writeBin(w, f, binTrees, visits); err != nil {
			nf.Close()
			return &IOError{Op: "writing transient nodes file", Path: nodesPath, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		nf.Close()
		return &IOError{Op: "flushing transient nodes file", Path: nodesPath, Err: err}
	}
	if err := nf.Close(); err != nil {
		return &IOError{Op: "closing transient nodes file", Path: nodesPath, Err: err}
	}
	return nil
}

// binSlot identifies a node of a bin's tree during slot assignment.
type binSlot struct {
	treeLocal int
	node      int32
}

/*
writeBin flattens one bin: a breadth-first walk seeded with every
tree's root, in forest order, assigns sequential slots, enqueueing
the more frequently visited child of each internal node first so hot
paths stay close to their parents. Ties keep the left child first, so
the layout is reproducible.
*/
func writeBin(w io.Writer, f *forest.Forest, binTrees []int, visits [][]int64) error {
	slots := make([]map[int32]int32, len(binTrees))
	order := make([]binSlot, 0)
	for local, ti := range binTrees {
		slots[local] = make(map[int32]int32, f.Trees[ti].NumNodes())
		order = append(order, binSlot{treeLocal: local, node: 0})
	}
	for i := 0; i < len(order); i++ {
		it := order[i]
		slots[it.treeLocal][it.node] = int32(i)
		ti := binTrees[it.treeLocal]
		n := &f.Trees[ti].Nodes[it.node]
		if n.IsLeaf() {
			continue
		}
		first, second := n.Left, n.Right
		if visits[ti][n.Right] > visits[ti][n.Left] {
			first, second = n.Right, n.Left
		}
		order = append(order,
			binSlot{treeLocal: it.treeLocal, node: first},
			binSlot{treeLocal: it.treeLocal, node: second})
	}

	records := make([]nodeRecord, len(order))
	var projTable []projEntry
	for i, it := range order {
		ti := binTrees[it.treeLocal]
		records[i] = packNode(&f.Trees[ti].Nodes[it.node], slots[it.treeLocal], &projTable)
	}

	h := binHeader{
		NumTrees:    uint32(len(binTrees)),
		NumNodes:    uint32(len(records)),
		NumProjEnts: uint32(len(projTable)),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	roots := make([]uint32, len(binTrees))
	indices := make([]uint32, len(binTrees))
	for local, ti := range binTrees {
		roots[local] = uint32(slots[local][0])
		indices[local] = uint32(ti)
	}
	if err := binary.Write(w, binary.LittleEndian, roots); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, indices); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, records); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, projTable)
}

// packNode converts one arena node into its fixed-size record,
// appending any sparse or patch projection terms to the bin's
// projection table.
func packNode(n *tree.Node, slot map[int32]int32, projTable *[]projEntry) nodeRecord {
	r := nodeRecord{
		Feature: -1,
		Left:    noSlot,
		Right:   noSlot,
		Label:   -1,
		Samples: uint32(n.Samples),
	}
	if n.IsLeaf() {
		r.Kind = kindLeaf
		r.Label = int32(n.Label)
		return r
	}
	r.Threshold = n.Threshold
	r.Left = slot[n.Left]
	r.Right = slot[n.Right]
	switch n.Split.Kind {
	case split.Axis:
		r.Kind = kindAxis
		r.Feature = n.Split.Feature
	default:
		r.Kind = kindSparse
		if n.Split.Kind == split.Patch {
			r.Kind = kindPatch
		}
		r.ProjOff = uint32(len(*projTable))
		r.ProjLen = uint32(len(n.Split.Features))
		for i, ft := range n.Split.Features {
			*projTable = append(*projTable, projEntry{Feature: ft, Weight: n.Split.Weights[i]})
		}
	}
	return r
}

// foldArtifact assembles the final artifact at partialPath: the file
// header and class table followed by the streamed bin payloads.
func foldArtifact(f *forest.Forest, bins [][]int, nodesPath, partialPath string) error {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return &IOError{Op: "reopening transient nodes file", Path: nodesPath, Err: err}
	}
	defer nf.Close()
	out, err := os.Create(partialPath)
	if err != nil {
		return &IOError{Op: "creating packed forest", Path: partialPath, Err: err}
	}
	w := bufio.NewWriter(out)
	h := fileHeader{
		Version:     formatVersion,
		NumBins:     uint32(len(bins)),
		NumTrees:    uint32(f.NumTrees()),
		NumFeatures: uint32(f.NumFeatures),
		NumClasses:  uint32(len(f.Classes)),
	}
	if err := writeFileHeader(w, h, f.Classes); err != nil {
		out.Close()
		return &IOError{Op: "writing packed forest header", Path: partialPath, Err: err}
	}
	if _, err := io.Copy(w, nf); err != nil {
		out.Close()
		return &IOError{Op: "folding node records into packed forest", Path: partialPath, Err: err}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return &IOError{Op: "flushing packed forest", Path: partialPath, Err: err}
	}
	if err := out.Close(); err != nil {
		return &IOError{Op: "closing packed forest", Path: partialPath, Err: err}
	}
	return nil
}
