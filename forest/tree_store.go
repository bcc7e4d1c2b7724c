package forest

import (
	"context"
	"fmt"
	"sync"

	"github.com/MaiRajborirug/SPORF/tree"
)

/*
TreeStore is an interface to manage a store where grown trees are
collected by their forest index. Growth workers store every tree they
finish; once the work queue drains, the forest is assembled from the
store in index order.

All its methods take a context that may allow cancelling the
operation (thus forcing the return of an error) if the implementation
allows it.
*/
type TreeStore interface {
	// Store saves a grown tree under its index, replacing any
	// previous tree with that index. It returns an error if the
	// tree cannot be stored.
	Store(ctx context.Context, t *tree.Tree) error
	// Get takes a forest index and returns the tree stored under it
	// (or nil if it cannot be found) or an error if the store
	// cannot be queried.
	Get(ctx context.Context, index int) (*tree.Tree, error)
	// Count returns the number of trees in the store or an error.
	Count(ctx context.Context) (int, error)
	// Close closes the store; implementations should free any
	// resources in use as well as ensure any pending changes are
	// applied before returning (unless the context expires).
	Close(ctx context.Context) error
}

type memoryTreeStore struct {
	trees map[int]*tree.Tree
	lock  *sync.RWMutex
}

// NewMemoryTreeStore returns an implementation of TreeStore with the
// process memory space as underlying backend.
func NewMemoryTreeStore() TreeStore {
	return &memoryTreeStore{
		trees: make(map[int]*tree.Tree),
		lock:  &sync.RWMutex{},
	}
}

func (mts *memoryTreeStore) Store(ctx context.Context, t *tree.Tree) error {
	return mts.withLock(ctx, func(ctx context.Context) error {
		mts.trees[t.Index] = t
		return nil
	})
}

func (mts *memoryTreeStore) Get(ctx context.Context, index int) (*tree.Tree, error) {
	var t *tree.Tree
	err := mts.withRLock(ctx, func(ctx context.Context) error {
		t = mts.trees[index]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (mts *memoryTreeStore) Count(ctx context.Context) (int, error) {
	var count int
	err := mts.withRLock(ctx, func(ctx context.Context) error {
		count = len(mts.trees)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (mts *memoryTreeStore) Close(ctx context.Context) error {
	return nil
}

func (mts *memoryTreeStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mts.lock.Lock()
		select {
		case <-ctx.Done():
			mts.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mts.lock.Unlock()
	}
	return f(ctx)
}

func (mts *memoryTreeStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		mts.lock.RLock()
		select {
		case <-ctx.Done():
			mts.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer mts.lock.RUnlock()
	}
	return f(ctx)
}

/*
Collect takes a context, a TreeStore, the expected tree count and the
forest geometry and assembles the ordered forest from the store. It
returns an error if any tree index is missing, so a partially grown
forest is never returned.
*/
func Collect(ctx context.Context, ts TreeStore, numTrees, numFeatures int, classes []int) (*Forest, error) {
	f := &Forest{
		Trees:       make([]*tree.Tree, 0, numTrees),
		NumFeatures: numFeatures,
		Classes:     classes,
	}
	for i := 0; i < numTrees; i++ {
		t, err := ts.Get(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("collecting tree %d: %v", i, err)
		}
		if t == nil {
			return nil, fmt.Errorf("collecting tree %d: not found in store", i)
		}
		f.Trees = append(f.Trees, t)
	}
	return f, nil
}
