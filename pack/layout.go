/*
Package pack transforms a grown forest into the binned, flat,
sequentially-addressable on-disk layout the prediction engine
traverses, and reads such layouts back for traversal.

The packed artifact is a single little-endian file:

	magic "SPKF", format version, global geometry, class table
	per bin:
	    bin header (tree count, node count, projection entry count)
	    root slots and forest indices of the bin's trees
	    flat array of fixed-size node records
	    projection entry table (feature, weight pairs)

Node records reference their children by bin-local slot, and sparse
and patch splits reference a contiguous range of the bin's projection
table, so traversal walks a single array per bin. Packing is a layout
transform only: the leaf any input reaches is identical to the leaf
the unpacked forest reaches.
*/
package pack

import (
	"encoding/binary"
	"fmt"
	"io"
)

var magic = [4]byte{'S', 'P', 'K', 'F'}

const formatVersion = 1

// node record kinds
const (
	kindAxis uint8 = iota
	kindSparse
	kindPatch
	kindLeaf
)

const noSlot int32 = -1

// nodeRecord is the fixed-size on-disk form of one node.
type nodeRecord struct {
	Kind      uint8
	_         [3]uint8
	Feature   int32
	Threshold float64
	Left      int32
	Right     int32
	ProjOff   uint32
	ProjLen   uint32
	Label     int32
	Samples   uint32
}

// projEntry is one (feature, weight) term of a sparse or patch
// projection.
type projEntry struct {
	Feature int32
	Weight  float64
}

type fileHeader struct {
	Version     uint32
	NumBins     uint32
	NumTrees    uint32
	NumFeatures uint32
	NumClasses  uint32
}

type binHeader struct {
	NumTrees    uint32
	NumNodes    uint32
	NumProjEnts uint32
}

func writeFileHeader(w io.Writer, h fileHeader, classes []int) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	classTable := make([]int32, len(classes))
	for i, c := range classes {
		classTable[i] = int32(c)
	}
	return binary.Write(w, binary.LittleEndian, classTable)
}

func readFileHeader(r io.Reader) (fileHeader, []int, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return fileHeader{}, nil, err
	}
	if m != magic {
		return fileHeader{}, nil, fmt.Errorf("bad magic %q, not a packed forest", m)
	}
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fileHeader{}, nil, err
	}
	if h.Version != formatVersion {
		return fileHeader{}, nil, fmt.Errorf("unsupported packed forest version %d", h.Version)
	}
	classTable := make([]int32, h.NumClasses)
	if err := binary.Read(r, binary.LittleEndian, classTable); err != nil {
		return fileHeader{}, nil, err
	}
	classes := make([]int, len(classTable))
	for i, c := range classTable {
		classes[i] = int(c)
	}
	return h, classes, nil
}
