package split

import (
	"fmt"
	"math"
	"math/rand"
)

/*
Sampler produces the pool of candidate split functions a node
evaluates. Implementations are stateless besides the random source the
caller passes in, so a deterministic per-tree source yields a
deterministic candidate sequence.
*/
type Sampler interface {
	// Candidates returns the candidate split functions for one node
	// in the order they were drawn. The order matters: growth breaks
	// impurity ties in favor of the earliest candidate.
	Candidates(r *rand.Rand) []Function
}

/*
AxisSampler proposes single-feature candidates sampled without
replacement, up to Mtry of them, for the rfBase and binnedBase
variants.
*/
type AxisSampler struct {
	NumFeatures int
	Mtry        int

	features []int32
}

// NewAxisSampler returns an AxisSampler over numFeatures features
// proposing up to mtry candidates per node.
func NewAxisSampler(numFeatures, mtry int) *AxisSampler {
	if mtry > numFeatures {
		mtry = numFeatures
	}
	features := make([]int32, numFeatures)
	for i := range features {
		features[i] = int32(i)
	}
	return &AxisSampler{NumFeatures: numFeatures, Mtry: mtry, features: features}
}

func (as *AxisSampler) Candidates(r *rand.Rand) []Function {
	// Partial Fisher-Yates over the reusable feature slice, as in
	// Knuth's Algorithm P.
	candidates := make([]Function, 0, as.Mtry)
	j := as.NumFeatures - 1
	for visited := 0; visited < as.Mtry && j >= 0; visited++ {
		k := r.Intn(j + 1)
		as.features[k], as.features[j] = as.features[j], as.features[k]
		candidates = append(candidates, Function{Kind: Axis, Feature: as.features[j]})
		j--
	}
	return candidates
}

/*
SparseSampler proposes sparse linear-combination candidates for the
RerF variants. Each of its Mtry candidates combines a Poisson(MtryMult)
number of distinct features, clamped to [1, NumFeatures], with weight 1
in binary mode or a weight drawn uniformly from {-1, +1} in ternary
mode. Zero-only combinations cannot occur: every drawn feature gets a
nonzero weight.
*/
type SparseSampler struct {
	NumFeatures int
	Mtry        int
	MtryMult    float64
	Ternary     bool

	features []int32
}

// NewSparseSampler returns a SparseSampler over numFeatures features.
// mtryMult is the expected number of nonzero weights per candidate.
func NewSparseSampler(numFeatures, mtry int, mtryMult float64, ternary bool) *SparseSampler {
	features := make([]int32, numFeatures)
	for i := range features {
		features[i] = int32(i)
	}
	return &SparseSampler{
		NumFeatures: numFeatures,
		Mtry:        mtry,
		MtryMult:    mtryMult,
		Ternary:     ternary,
		features:    features,
	}
}

func (ss *SparseSampler) Candidates(r *rand.Rand) []Function {
	candidates := make([]Function, 0, ss.Mtry)
	for c := 0; c < ss.Mtry; c++ {
		nnz := poisson(r, ss.MtryMult)
		if nnz < 1 {
			nnz = 1
		}
		if nnz > ss.NumFeatures {
			nnz = ss.NumFeatures
		}
		features := make([]int32, 0, nnz)
		weights := make([]float64, 0, nnz)
		j := ss.NumFeatures - 1
		for i := 0; i < nnz; i++ {
			k := r.Intn(j + 1)
			ss.features[k], ss.features[j] = ss.features[j], ss.features[k]
			features = append(features, ss.features[j])
			w := 1.0
			if ss.Ternary && r.Intn(2) == 0 {
				w = -1.0
			}
			weights = append(weights, w)
			j--
		}
		candidates = append(candidates, Function{Kind: Sparse, Features: features, Weights: weights})
	}
	return candidates
}

/*
PatchSampler proposes contiguous rectangular patch candidates for the
structured S-RerF variant. Samples are interpreted as row-major
ImageHeight x ImageWidth images. Patch height and width are drawn
uniformly within their configured bounds and the patch origin is drawn
so the patch stays in bounds. Every pixel in the patch contributes with
weight 1.
*/
type PatchSampler struct {
	ImageHeight    int
	ImageWidth     int
	PatchHeightMin int
	PatchHeightMax int
	PatchWidthMin  int
	PatchWidthMax  int
	Mtry           int
}

// NewPatchSampler returns a PatchSampler for the given image geometry
// and patch bounds, proposing up to mtry candidates per node. It
// returns an error if a maximal patch would not fit the image.
func NewPatchSampler(imageHeight, imageWidth, patchHeightMin, patchHeightMax, patchWidthMin, patchWidthMax, mtry int) (*PatchSampler, error) {
	if patchHeightMax > imageHeight || patchWidthMax > imageWidth {
		return nil, fmt.Errorf("patch bounds %dx%d exceed image %dx%d",
			patchHeightMax, patchWidthMax, imageHeight, imageWidth)
	}
	return &PatchSampler{
		ImageHeight:    imageHeight,
		ImageWidth:     imageWidth,
		PatchHeightMin: patchHeightMin,
		PatchHeightMax: patchHeightMax,
		PatchWidthMin:  patchWidthMin,
		PatchWidthMax:  patchWidthMax,
		Mtry:           mtry,
	}, nil
}

func (ps *PatchSampler) Candidates(r *rand.Rand) []Function {
	candidates := make([]Function, 0, ps.Mtry)
	for c := 0; c < ps.Mtry; c++ {
		h := ps.PatchHeightMin + r.Intn(ps.PatchHeightMax-ps.PatchHeightMin+1)
		w := ps.PatchWidthMin + r.Intn(ps.PatchWidthMax-ps.PatchWidthMin+1)
		top := r.Intn(ps.ImageHeight - h + 1)
		left := r.Intn(ps.ImageWidth - w + 1)
		features := make([]int32, 0, h*w)
		weights := make([]float64, 0, h*w)
		for row := top; row < top+h; row++ {
			for col := left; col < left+w; col++ {
				features = append(features, int32(row*ps.ImageWidth+col))
				weights = append(weights, 1.0)
			}
		}
		candidates = append(candidates, Function{Kind: Patch, Features: features, Weights: weights})
	}
	return candidates
}

// poisson draws from a Poisson distribution with the given mean using
// Knuth's multiplication method. Means here are small (mtryMult), so
// the linear-time method is fine.
func poisson(r *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= r.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
