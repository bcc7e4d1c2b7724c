package sporf

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/MaiRajborirug/SPORF/config"
	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/split"
	"github.com/MaiRajborirug/SPORF/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
clusterDataset builds a 3-class dataset of 50 samples per class in 4
dimensions, with the classes centered far enough apart that a small
forest separates them on its training data.
*/
func clusterDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	r := rand.New(rand.NewSource(1234))
	centers := [][]float64{
		{0, 0, 0, 0},
		{5, 5, 0, 0},
		{0, 5, 5, 5},
	}
	var x [][]float64
	var y []int
	for class, center := range centers {
		for i := 0; i < 50; i++ {
			row := make([]float64, len(center))
			for j, c := range center {
				row[j] = c + r.NormFloat64()
			}
			x = append(x, row)
			y = append(y, class)
		}
	}
	ds, err := dataset.New(x, y)
	require.NoError(t, err)
	return ds
}

func testConfig(t *testing.T, settings map[string]config.Value) *config.Config {
	t.Helper()
	s := config.NewStore()
	s.Set("numTreesInForest", config.IntValue(10))
	for name, v := range settings {
		s.Set(name, v)
	}
	cfg, err := config.New(s)
	require.NoError(t, err)
	return cfg
}

func trainingAccuracy(t *testing.T, f *forest.Forest, ds *dataset.Dataset) float64 {
	t.Helper()
	labels, err := f.Predict(ds.X)
	require.NoError(t, err)
	hits := 0
	for i, label := range labels {
		if label == ds.Y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(labels))
}

func TestGrowForest(t *testing.T) {
	ds := clusterDataset(t)
	cfg := testConfig(t, nil)
	f, err := GrowForest(context.Background(), ds, cfg)
	require.NoError(t, err)
	require.Equal(t, 10, f.NumTrees())
	assert.Equal(t, 4, f.NumFeatures)
	assert.Equal(t, []int{0, 1, 2}, f.Classes)
	for i, tr := range f.Trees {
		assert.Equal(t, i, tr.Index)
	}
	acc := trainingAccuracy(t, f, ds)
	assert.GreaterOrEqual(t, acc, 0.95, "training accuracy")
}

// TestGrowForestReproducible verifies the grown forest depends only
// on the seed, not on the worker count.
func TestGrowForestReproducible(t *testing.T) {
	ds := clusterDataset(t)
	serial, err := GrowForest(context.Background(), ds, testConfig(t, nil))
	require.NoError(t, err)
	parallel, err := GrowForest(context.Background(), ds, testConfig(t, map[string]config.Value{
		"numCores": config.IntValue(4),
	}))
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, forest.WriteJSON(&a, serial))
	require.NoError(t, forest.WriteJSON(&b, parallel))
	assert.Equal(t, a.String(), b.String())
}

// TestGrowForestSeedChangesForest verifies a different seed grows a
// different forest.
func TestGrowForestSeedChangesForest(t *testing.T) {
	ds := clusterDataset(t)
	a, err := GrowForest(context.Background(), ds, testConfig(t, nil))
	require.NoError(t, err)
	b, err := GrowForest(context.Background(), ds, testConfig(t, map[string]config.Value{
		"seed": config.IntValue(99),
	}))
	require.NoError(t, err)

	var ja, jb bytes.Buffer
	require.NoError(t, forest.WriteJSON(&ja, a))
	require.NoError(t, forest.WriteJSON(&jb, b))
	assert.NotEqual(t, ja.String(), jb.String())
}

// TestGrowForestInvariants walks every grown tree checking the
// structural invariants growth promises.
func TestGrowForestInvariants(t *testing.T) {
	ds := clusterDataset(t)
	cfg := testConfig(t, map[string]config.Value{
		"maxDepth":  config.IntValue(4),
		"minParent": config.IntValue(5),
	})
	f, err := GrowForest(context.Background(), ds, cfg)
	require.NoError(t, err)

	for _, tr := range f.Trees {
		assert.LessOrEqual(t, tr.Depth(), 4)
		err := tr.Walk(func(i int32, n *tree.Node) error {
			if n.IsLeaf() {
				return nil
			}
			require.NotEqual(t, tree.NoChild, n.Right, "internal node %d has no right child", i)
			left := &tr.Nodes[n.Left]
			right := &tr.Nodes[n.Right]
			assert.Equal(t, n.Samples, left.Samples+right.Samples,
				"children of node %d do not partition it", i)
			assert.NotZero(t, left.Samples)
			assert.NotZero(t, right.Samples)
			assert.Greater(t, n.Samples, 5, "node %d was split below minParent", i)
			return nil
		})
		require.NoError(t, err)
	}
}

func TestGrowForestVariants(t *testing.T) {
	ds := clusterDataset(t)
	for _, forestType := range []string{"binnedBase", "binnedBaseRerF", "binnedBaseTern"} {
		t.Run(forestType, func(t *testing.T) {
			cfg := testConfig(t, map[string]config.Value{
				"forestType": config.StringValue(forestType),
			})
			f, err := GrowForest(context.Background(), ds, cfg)
			require.NoError(t, err)
			acc := trainingAccuracy(t, f, ds)
			assert.GreaterOrEqual(t, acc, 0.9, "training accuracy")
		})
	}
}

// TestGrowForestStructured grows the structured variant over 4x4
// images with two pixel-block classes.
func TestGrowForestStructured(t *testing.T) {
	r := rand.New(rand.NewSource(77))
	var x [][]float64
	var y []int
	for i := 0; i < 100; i++ {
		img := make([]float64, 16)
		class := i % 2
		for p := range img {
			img[p] = r.Float64()
		}
		if class == 1 {
			// bright 2x2 block in the top-left corner
			for _, p := range []int{0, 1, 4, 5} {
				img[p] += 3
			}
		}
		x = append(x, img)
		y = append(y, class)
	}
	ds, err := dataset.New(x, y)
	require.NoError(t, err)

	cfg := testConfig(t, map[string]config.Value{
		"forestType":  config.StringValue("S-RerF"),
		"imageHeight": config.IntValue(4),
		"imageWidth":  config.IntValue(4),
	})
	f, err := GrowForest(context.Background(), ds, cfg)
	require.NoError(t, err)
	acc := trainingAccuracy(t, f, ds)
	assert.GreaterOrEqual(t, acc, 0.9, "training accuracy")
}

// TestGrowForestSubsampled verifies growth with the stratified node
// subsampler enabled still separates the training data.
func TestGrowForestSubsampled(t *testing.T) {
	ds := clusterDataset(t)
	cfg := testConfig(t, map[string]config.Value{
		"nodeSizeToBin": config.IntValue(50),
		"nodeSizeBin":   config.IntValue(30),
	})
	f, err := GrowForest(context.Background(), ds, cfg)
	require.NoError(t, err)
	acc := trainingAccuracy(t, f, ds)
	assert.GreaterOrEqual(t, acc, 0.9, "training accuracy")
}

func TestGrowForestFromMatrix(t *testing.T) {
	ds := clusterDataset(t)
	f, err := GrowForestFromMatrix(context.Background(), ds.X, ds.Y, testConfig(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 10, f.NumTrees())

	_, err = GrowForestFromMatrix(context.Background(), ds.X, ds.Y[:10], testConfig(t, nil))
	require.Error(t, err)
	_, ok := err.(*DimensionMismatchError)
	assert.True(t, ok, "expected a DimensionMismatchError, got %T", err)
}

func TestGrowForestCancelled(t *testing.T) {
	ds := clusterDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GrowForest(ctx, ds, testConfig(t, nil))
	require.Error(t, err)
}

// TestCheckStructuredMismatch verifies a structured configuration
// whose image geometry does not match the dataset fails before any
// growth work starts.
func TestCheckStructuredMismatch(t *testing.T) {
	ds := clusterDataset(t)
	cfg := testConfig(t, map[string]config.Value{
		"forestType":  config.StringValue("S-RerF"),
		"imageHeight": config.IntValue(4),
		"imageWidth":  config.IntValue(4),
	})
	err := Check(ds, cfg)
	require.Error(t, err)
	_, ok := err.(*config.InvalidConfigError)
	assert.True(t, ok)
}

func TestTreeSeed(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		s := TreeSeed(42, i)
		assert.False(t, seen[s], "tree %d repeats an earlier seed", i)
		seen[s] = true
	}
	assert.NotEqual(t, TreeSeed(42, 0), TreeSeed(43, 0))
}

// TestBestSplitTwoClusters checks the sort-then-sweep threshold
// search on a hand-computable single-feature node.
func TestBestSplitTwoClusters(t *testing.T) {
	ds, err := dataset.New(
		[][]float64{{0.1}, {0.2}, {0.6}, {0.8}},
		[]int{0, 0, 1, 1},
	)
	require.NoError(t, err)
	g := &grower{
		ds:        ds,
		sampler:   split.NewAxisSampler(1, 1),
		r:         rand.New(rand.NewSource(1)),
		nanRight:  make([]int, 2),
		classCtL:  make([]int, 2),
		classCtR:  make([]int, 2),
		classZero: make([]int, 2),
	}
	best, ok := g.bestSplit([]int{0, 1, 2, 3})
	require.True(t, ok)
	assert.InDelta(t, 0.4, best.threshold, 1e-12)
	assert.InDelta(t, 0.5, best.gain, 1e-12)
}

// TestBestSplitConstantFeature verifies a constant projection yields
// no split.
func TestBestSplitConstantFeature(t *testing.T) {
	ds, err := dataset.New(
		[][]float64{{1.1}, {1.1}, {1.1}, {1.1}},
		[]int{0, 0, 1, 1},
	)
	require.NoError(t, err)
	g := &grower{
		ds:        ds,
		sampler:   split.NewAxisSampler(1, 1),
		r:         rand.New(rand.NewSource(1)),
		nanRight:  make([]int, 2),
		classCtL:  make([]int, 2),
		classCtR:  make([]int, 2),
		classZero: make([]int, 2),
	}
	_, ok := g.bestSplit([]int{0, 1, 2, 3})
	assert.False(t, ok)
}

// TestBestSplitNaNRoutesRight verifies samples with missing values
// are counted on the right of every cut.
func TestBestSplitNaNRoutesRight(t *testing.T) {
	ds, err := dataset.New(
		[][]float64{{0.1}, {0.2}, {0.6}, {0.8}, {math.NaN()}},
		[]int{0, 0, 1, 1, 1},
	)
	require.NoError(t, err)
	g := &grower{
		ds:        ds,
		sampler:   split.NewAxisSampler(1, 1),
		r:         rand.New(rand.NewSource(1)),
		nanRight:  make([]int, 2),
		classCtL:  make([]int, 2),
		classCtR:  make([]int, 2),
		classZero: make([]int, 2),
	}
	best, ok := g.bestSplit([]int{0, 1, 2, 3, 4})
	require.True(t, ok)
	assert.InDelta(t, 0.4, best.threshold, 1e-12)

	left, right := partition(ds, []int{0, 1, 2, 3, 4}, &best.fn, best.threshold)
	assert.ElementsMatch(t, []int{0, 1}, left)
	assert.ElementsMatch(t, []int{2, 3, 4}, right)
}

func TestPartition(t *testing.T) {
	ds, err := dataset.New(
		[][]float64{{5}, {1}, {4}, {2}, {3}},
		[]int{0, 0, 0, 1, 1},
	)
	require.NoError(t, err)
	fn := split.Function{Kind: split.Axis, Feature: 0}
	left, right := partition(ds, []int{0, 1, 2, 3, 4}, &fn, 3)
	assert.ElementsMatch(t, []int{1, 3, 4}, left)
	assert.ElementsMatch(t, []int{0, 2}, right)
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, gini(0, nil))
	assert.Equal(t, 0.0, gini(4, []int{4, 0}))
	assert.InDelta(t, 0.5, gini(4, []int{2, 2}), 1e-12)
	assert.InDelta(t, 0.375, gini(4, []int{3, 1}), 1e-12)
}

func TestMajorityClassAndPurity(t *testing.T) {
	assert.Equal(t, 1, majorityClass([]int{1, 3, 2}))
	assert.Equal(t, 0, majorityClass([]int{2, 2}), "ties go to the lowest class id")
	assert.True(t, isPure([]int{0, 5, 0}))
	assert.True(t, isPure([]int{0, 0}))
	assert.False(t, isPure([]int{1, 1}))
}
