package forest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTreeStore(t *testing.T) {
	ctx := context.Background()
	ts := NewMemoryTreeStore()
	defer ts.Close(ctx)

	count, err := ts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	tr := leaf(3, 0)
	require.NoError(t, ts.Store(ctx, tr))

	got, err := ts.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	missing, err := ts.Get(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, missing)

	count, err = ts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestCollect verifies trees come out in index order no matter the
// order they were stored in.
func TestCollect(t *testing.T) {
	ctx := context.Background()
	ts := NewMemoryTreeStore()
	defer ts.Close(ctx)
	for _, index := range []int{2, 0, 1} {
		require.NoError(t, ts.Store(ctx, leaf(index, 0)))
	}

	f, err := Collect(ctx, ts, 3, 1, []int{0})
	require.NoError(t, err)
	require.Equal(t, 3, f.NumTrees())
	for i, tr := range f.Trees {
		assert.Equal(t, i, tr.Index)
	}
	assert.Equal(t, 1, f.NumFeatures)
}

// TestCollectMissingTree verifies collection fails when a grown tree
// never reached the store.
func TestCollectMissingTree(t *testing.T) {
	ctx := context.Background()
	ts := NewMemoryTreeStore()
	defer ts.Close(ctx)
	require.NoError(t, ts.Store(ctx, leaf(0, 0)))

	_, err := Collect(ctx, ts, 2, 1, []int{0})
	require.Error(t, err)
}
