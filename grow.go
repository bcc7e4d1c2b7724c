package sporf

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/MaiRajborirug/SPORF/config"
	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/split"
	"github.com/MaiRajborirug/SPORF/tree"
)

// minGain is the smallest impurity reduction considered a real
// improvement; splits below it are degenerate and become leaves.
const minGain = 1e-7

// sameValueEps is the gap under which two sorted projections are
// considered equal and no threshold is placed between them.
const sameValueEps = 1e-7

/*
grower holds the per-tree state of the growing engine: the shared
read-only dataset, the tree's private random stream and candidate
sampler, and scratch buffers reused across nodes. A grower is owned
by a single worker goroutine; two growers never share mutable state.
*/
type grower struct {
	ds      *dataset.Dataset
	cfg     *config.Config
	sampler split.Sampler
	r       *rand.Rand
	t       *tree.Tree

	// scratch reused across nodes
	proj      []projection
	nanRight  []int
	classCtL  []int
	classCtR  []int
	classZero []int
}

type projection struct {
	value float64
	class int
}

/*
growTree grows the tree with the given forest index from a bootstrap
draw of the dataset, using a random stream derived only from the
task seed, so the result is identical no matter which worker runs it.
*/
func growTree(ctx context.Context, ds *dataset.Dataset, cfg *config.Config, index int, seed int64) (*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sampler, err := cfg.Sampler(ds.NumFeatures())
	if err != nil {
		return nil, err
	}
	k := ds.NumClasses()
	g := &grower{
		ds:        ds,
		cfg:       cfg,
		sampler:   sampler,
		r:         rand.New(rand.NewSource(seed)),
		t:         tree.New(index),
		proj:      make([]projection, 0, ds.Count()),
		nanRight:  make([]int, k),
		classCtL:  make([]int, k),
		classCtR:  make([]int, k),
		classZero: make([]int, k),
	}
	indices := g.bootstrap()
	g.growNode(indices, 0)
	return g.t, nil
}

// bootstrap returns n sample indices drawn with replacement.
func (g *grower) bootstrap() []int {
	n := g.ds.Count()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = g.r.Intn(n)
	}
	return indices
}

/*
growNode develops the node over the given active sample indices at
the given depth and returns its arena index. Stopping criteria
(minParent, maxDepth, purity, degenerate best split) emit a leaf;
otherwise the winning split partitions the full active set into the
two children and growth recurses on each at depth+1.
*/
func (g *grower) growNode(indices []int, depth int) int32 {
	counts := g.ds.ClassCounts(indices)
	node := tree.Node{
		Left:        tree.NoChild,
		Right:       tree.NoChild,
		ClassCounts: counts,
		Label:       majorityClass(counts),
		Samples:     len(indices),
	}
	idx := g.t.Append(node)

	if len(indices) <= g.cfg.MinParent ||
		(g.cfg.MaxDepth > 0 && depth == g.cfg.MaxDepth) ||
		isPure(counts) {
		return idx
	}

	evalSet := indices
	if g.cfg.NodeSizeToBin > 0 && len(indices) > g.cfg.NodeSizeToBin {
		evalSet = g.ds.StratifiedSample(g.r, indices, g.cfg.NodeSizeBin)
	}

	best, ok := g.bestSplit(evalSet)
	if !ok {
		return idx
	}

	left, right := partition(g.ds, indices, &best.fn, best.threshold)
	if len(left) == 0 || len(right) == 0 {
		// The winning threshold came from a subsampled evaluation
		// set and does not separate the full active set.
		return idx
	}

	leftIdx := g.growNode(left, depth+1)
	rightIdx := g.growNode(right, depth+1)
	g.t.Nodes[idx].Split = best.fn
	g.t.Nodes[idx].Threshold = best.threshold
	g.t.Nodes[idx].Left = leftIdx
	g.t.Nodes[idx].Right = rightIdx
	return idx
}

type candidateSplit struct {
	fn        split.Function
	threshold float64
	gain      float64
}

/*
bestSplit evaluates every candidate the sampler proposes over the
evaluation set and returns the (gain, candidate, threshold) winner.
Ties in gain break towards the earliest-sampled candidate, so reruns
with a fixed seed pick the same split regardless of float ordering
quirks. The boolean result is false when no candidate yields a
nonzero impurity reduction.
*/
func (g *grower) bestSplit(evalSet []int) (candidateSplit, bool) {
	candidates := g.sampler.Candidates(g.r)
	parentCounts := g.ds.ClassCounts(evalSet)
	parentImpurity := gini(len(evalSet), parentCounts)

	var best candidateSplit
	found := false
	for _, fn := range candidates {
		threshold, gain, ok := g.scanThresholds(evalSet, &fn, parentCounts, parentImpurity)
		if !ok || gain <= minGain {
			continue
		}
		// Strictly greater, so the earliest-sampled candidate
		// keeps exact ties.
		if !found || gain > best.gain {
			best = candidateSplit{fn: fn, threshold: threshold, gain: gain}
			found = true
		}
	}
	return best, found
}

/*
scanThresholds projects the evaluation set through the candidate,
sorts the finite projections and scans every cut point between
distinct adjacent values, keeping incremental class counts the way
the classic sort-then-sweep search does. Samples whose projection is
NaN never cross any threshold: they are counted on the right side for
every cut, which matches where traversal routes them.
*/
func (g *grower) scanThresholds(evalSet []int, fn *split.Function, parentCounts []int, parentImpurity float64) (float64, float64, bool) {
	g.proj = g.proj[:0]
	copy(g.nanRight, g.classZero)
	for _, s := range evalSet {
		v := fn.Project(g.ds.X[s])
		if math.IsNaN(v) {
			g.nanRight[g.ds.ClassIDs[s]]++
			continue
		}
		g.proj = append(g.proj, projection{value: v, class: g.ds.ClassIDs[s]})
	}
	if len(g.proj) < 2 {
		return 0, 0, false
	}
	sort.Slice(g.proj, func(i, j int) bool { return g.proj[i].value < g.proj[j].value })

	copy(g.classCtL, g.classZero)
	copy(g.classCtR, g.nanRight)
	for _, p := range g.proj {
		g.classCtR[p.class]++
	}

	n := len(evalSet)
	nLeft := 0
	nRight := n
	var (
		bestGain      float64
		bestThreshold float64
		lastCtr       int
		found         bool
	)
	for i := 1; i < len(g.proj); i++ {
		if g.proj[i].value <= g.proj[i-1].value+sameValueEps {
			continue
		}
		for j := lastCtr; j < i; j++ {
			class := g.proj[j].class
			nLeft++
			g.classCtL[class]++
			nRight--
			g.classCtR[class]--
		}
		lastCtr = i

		iL := gini(nLeft, g.classCtL)
		iR := gini(nRight, g.classCtR)
		gain := parentImpurity -
			(float64(nLeft)/float64(n))*iL -
			(float64(nRight)/float64(n))*iR
		if gain > bestGain {
			bestGain = gain
			bestThreshold = (g.proj[i-1].value + g.proj[i].value) / 2.0
			found = true
		}
	}
	return bestThreshold, bestGain, found
}

// partition splits the active sample indices by the given split
// function and threshold: projections at most the threshold go left,
// everything else (NaN included) goes right.
func partition(ds *dataset.Dataset, indices []int, fn *split.Function, threshold float64) ([]int, []int) {
	i := 0
	j := len(indices)
	for i < j {
		if fn.Project(ds.X[indices[i]]) <= threshold {
			i++
		} else {
			j--
			indices[i], indices[j] = indices[j], indices[i]
		}
	}
	return indices[:i], indices[i:]
}

// gini impurity
// i_t = 1 - sum over k p(c_k|t)^2
func gini(n int, counts []int) float64 {
	if n == 0 {
		return 0
	}
	g := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(n)
			g += p * p
		}
	}
	return 1.0 - g
}

// entropy
// e_t = - sum over k p(c_k|t) log2 p(c_k|t)
func entropy(n int, counts []int) float64 {
	if n == 0 {
		return 0
	}
	e := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(n)
			e -= p * math.Log2(p)
		}
	}
	return e
}

func majorityClass(counts []int) int {
	best := 0
	for class, count := range counts {
		if count > counts[best] {
			best = class
		}
	}
	return best
}

func isPure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}
