/*
Package sporf grows ensembles of randomized decision trees (classic
random forests, sparse-projection randomer forests and a structured
variant for 2-D image data) and hands them to the packing engine in
the pack package for a cache-friendly on-disk layout.

Forest growth is organized the way a work queue is consumed: one task
per tree is pushed up front, workers pull tasks and grow trees
independently, and grown trees are collected through a TreeStore. The
default queue and store are memory-backed; the redisq and redisstore
packages let several processes cooperate on one forest.
*/
package sporf

import (
	"context"
	"time"

	"github.com/MaiRajborirug/SPORF/config"
	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/queue"
	"golang.org/x/sync/errgroup"
)

// DimensionMismatchError is the error GrowForestFromMatrix returns
// when the feature matrix and the label vector disagree on the
// number of samples.
type DimensionMismatchError = dataset.DimensionMismatchError

// emptyQueueSleep is how long a worker sleeps before polling the
// queue again when it finds it empty but tasks are still running.
const emptyQueueSleep = 20 * time.Millisecond

/*
GrowForestFromMatrix takes a context, an n x d feature matrix, an
n-length integer label vector and a validated configuration and
returns the grown forest or an error. It fails with a
DimensionMismatchError if the row counts differ and with an
InvalidConfigError before any tree growth if the configuration is
malformed.
*/
func GrowForestFromMatrix(ctx context.Context, x [][]float64, y []int, cfg *config.Config) (*forest.Forest, error) {
	ds, err := dataset.New(x, y)
	if err != nil {
		return nil, err
	}
	return GrowForest(ctx, ds, cfg)
}

/*
GrowForestFromFile takes a context, the path of a headerless CSV
file, the index of its label column and a validated configuration and
returns the grown forest or an error. It fails with a
FileNotFoundError if the path is unreadable and with an
InvalidConfigError if the label column index is negative.
*/
func GrowForestFromFile(ctx context.Context, path string, labelColumn int, cfg *config.Config) (*forest.Forest, error) {
	if labelColumn < 0 {
		return nil, &config.InvalidConfigError{
			Setting: "labelColumnIndex",
			Reason:  "must be set to the index of the label column",
		}
	}
	ds, err := dataset.ReadCSVFile(path, labelColumn)
	if err != nil {
		return nil, err
	}
	return GrowForest(ctx, ds, cfg)
}

/*
GrowForest takes a context, a dataset and a validated configuration
and grows the configured forest over a memory-backed queue and tree
store, dispatching the growth tasks across numCores workers. Tree
indices and their random streams are assigned before dispatch, so the
resulting forest is identical for any worker count.
*/
func GrowForest(ctx context.Context, ds *dataset.Dataset, cfg *config.Config) (*forest.Forest, error) {
	if err := Check(ds, cfg); err != nil {
		return nil, err
	}
	q := queue.New()
	defer q.Stop(ctx)
	ts := forest.NewMemoryTreeStore()
	defer ts.Close(ctx)
	if err := Seed(ctx, cfg, q); err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumCores; i++ {
		g.Go(func() error {
			return Work(gctx, ds, cfg, q, ts)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest.Collect(ctx, ts, cfg.NumTrees, ds.NumFeatures(), ds.Classes)
}

/*
Check validates the configuration against the dataset before any
growth work starts: the generic parameter invariants, and that a
candidate sampler can actually be built for the dataset's feature
dimensionality (which catches structured configurations whose image
geometry does not match the data). It returns an InvalidConfigError
describing the first violation found, or nil.
*/
func Check(ds *dataset.Dataset, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err := cfg.Sampler(ds.NumFeatures())
	return err
}

/*
Seed takes a context, a configuration and a queue and pushes one
growth task per tree of the forest, assigning every tree its index
and the seed of its random draw stream derived from the global seed
and that index. Workers that consume from the queue afterwards grow
the forest's trees.
*/
func Seed(ctx context.Context, cfg *config.Config, q queue.Queue) error {
	for i := 0; i < cfg.NumTrees; i++ {
		task := &queue.Task{Tree: i, Seed: TreeSeed(cfg.Seed, i)}
		if err := q.Push(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// TreeSeed derives the random stream seed of the tree with the given
// index from the global seed. The odd multiplier keeps neighboring
// tree streams far apart.
func TreeSeed(seed int64, index int) int64 {
	return seed + int64(index+1)*2654435761
}

/*
Work takes a context, a dataset, a configuration, a queue and a tree
store and enters a loop in which it:
  - pulls a task from the queue,
  - grows the task's tree from the dataset,
  - stores the grown tree on the tree store,
  - marks the task as completed on the queue.

If at some point no task can be pulled and the sum of tasks running
and pending on the queue is 0, the worker ends returning nil. If no
task can be pulled but the sum is not 0, the worker sleeps briefly
and retries.

Work will return a non-nil error if the given context times out or
is cancelled, if growing a tree fails, or if an operation with the
given queue or store returns a non-nil error.
*/
func Work(ctx context.Context, ds *dataset.Dataset, cfg *config.Config, q queue.Queue, ts forest.TreeStore) error {
	for {
		task, tctx, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			pending, running, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if pending+running == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		if tctx == nil {
			tctx = context.Background()
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = workTask(mctx, task, ds, cfg, q, ts)
		cancel()
		if err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func workTask(ctx context.Context, task *queue.Task, ds *dataset.Dataset, cfg *config.Config, q queue.Queue, ts forest.TreeStore) error {
	defer func() {
		q.Drop(ctx, task.ID())
	}()
	t, err := growTree(ctx, ds, cfg, task.Tree, task.Seed)
	if err != nil {
		return err
	}
	if err = ts.Store(ctx, t); err != nil {
		return err
	}
	return q.Complete(ctx, task.ID())
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
