/*
Package split defines the split functions evaluated at the internal
nodes of a randomized decision tree, together with the per-variant
samplers that propose candidate split functions during growth.
*/
package split

import (
	"fmt"
	"math"
	"strings"
)

// ForestType identifies the algorithm variant used to sample
// candidate split functions at each node.
type ForestType int

const (
	// RFBase grows classic random forests: every candidate is a
	// single raw feature.
	RFBase ForestType = iota
	// BinnedBase is RFBase grown for the binned packed layout. The
	// candidate sampling is identical to RFBase.
	BinnedBase
	// RerF grows randomer forests: every candidate is a sparse
	// linear combination of features with weights in {1}.
	RerF
	// RerFTernary is RerF with weights drawn uniformly from {-1, +1}.
	RerFTernary
	// SRerF is the structured variant for 2-D image data: every
	// candidate is a contiguous rectangular pixel patch.
	SRerF
)

func (ft ForestType) String() string {
	switch ft {
	case RFBase:
		return "rfBase"
	case BinnedBase:
		return "binnedBase"
	case RerF:
		return "binnedBaseRerF"
	case RerFTernary:
		return "binnedBaseTern"
	case SRerF:
		return "S-RerF"
	}
	return fmt.Sprintf("ForestType(%d)", int(ft))
}

/*
ParseForestType takes the name of a forest type and returns the
ForestType it identifies and a boolean indicating whether the name was
recognized. Unrecognized names are accepted and mapped to RFBase so
that callers can warn about them and keep going instead of rejecting
configurations written for newer versions.
*/
func ParseForestType(name string) (ForestType, bool) {
	switch strings.TrimSpace(name) {
	case "rfBase":
		return RFBase, true
	case "binnedBase":
		return BinnedBase, true
	case "rerf", "binnedBaseRerF":
		return RerF, true
	case "binnedBaseTern":
		return RerFTernary, true
	case "S-RerF":
		return SRerF, true
	}
	return RFBase, false
}

// Kind distinguishes the shapes a split function can take.
type Kind uint8

const (
	// Axis splits compare a single raw feature against a threshold.
	Axis Kind = iota
	// Sparse splits compare a sparse weighted combination of
	// features against a threshold.
	Sparse
	// Patch splits compare the weighted sum of a rectangular 2-D
	// pixel patch against a threshold. The patch is stored as the
	// flattened feature indices it covers, so evaluation does not
	// need the image geometry.
	Patch
)

/*
Function is a split function: a projection of a sample onto a scalar
that a node compares against its threshold. Axis functions use only
Feature; Sparse and Patch functions use the parallel Features and
Weights slices.
*/
type Function struct {
	Kind     Kind      `json:"kind"`
	Feature  int32     `json:"feature,omitempty"`
	Features []int32   `json:"features,omitempty"`
	Weights  []float64 `json:"weights,omitempty"`
}

/*
Project takes a sample and returns the scalar projection of the sample
through the function. Projections involving NaN or infinite feature
values yield NaN, which compares false against any threshold, so such
samples consistently route to the right child during growth and
traversal alike.
*/
func (f *Function) Project(sample []float64) float64 {
	if f.Kind == Axis {
		return sample[f.Feature]
	}
	var v float64
	for i, ft := range f.Features {
		v += f.Weights[i] * sample[ft]
	}
	return v
}

// NumFeatures returns the number of features the function reads.
func (f *Function) NumFeatures() int {
	if f.Kind == Axis {
		return 1
	}
	return len(f.Features)
}

// Equal reports whether two functions project every sample
// identically.
func (f *Function) Equal(other *Function) bool {
	if f.Kind != other.Kind {
		return false
	}
	if f.Kind == Axis {
		return f.Feature == other.Feature
	}
	if len(f.Features) != len(other.Features) {
		return false
	}
	for i := range f.Features {
		if f.Features[i] != other.Features[i] || f.Weights[i] != other.Weights[i] {
			return false
		}
	}
	return true
}

func (f *Function) String() string {
	switch f.Kind {
	case Axis:
		return fmt.Sprintf("x[%d]", f.Feature)
	case Patch:
		return fmt.Sprintf("patch(%d px)", len(f.Features))
	}
	terms := make([]string, 0, len(f.Features))
	for i, ft := range f.Features {
		sign := "+"
		if f.Weights[i] < 0 {
			sign = "-"
		}
		terms = append(terms, fmt.Sprintf("%s%.0f*x[%d]", sign, math.Abs(f.Weights[i]), ft))
	}
	return strings.Join(terms, " ")
}
