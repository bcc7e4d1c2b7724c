package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPullComplete(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{Tree: 0, Seed: 10}))
	require.NoError(t, q.Push(ctx, &Task{Tree: 1, Seed: 20}))

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Equal(t, 0, running)

	task, tctx, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	require.NotNil(t, tctx)
	assert.Equal(t, 0, task.Tree)

	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, running)

	require.NoError(t, q.Complete(ctx, task.ID()))
	pending, running, err = q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, running)
}

// TestPullEmpty verifies an empty queue yields three nil values, not
// an error.
func TestPullEmpty(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	task, tctx, err := q.Pull(ctx)
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Nil(t, tctx)
}

// TestDropRequeues verifies a dropped running task counts as pending
// again and can be pulled by another worker.
func TestDropRequeues(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{Tree: 7, Seed: 1}))
	task, _, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)

	require.NoError(t, q.Drop(ctx, task.ID()))
	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, running)

	again, _, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 7, again.Tree)
}

// TestDropAfterComplete verifies dropping a completed task does not
// resurrect it.
func TestDropAfterComplete(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{Tree: 0, Seed: 1}))
	task, _, err := q.Pull(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, task.ID()))
	require.NoError(t, q.Drop(ctx, task.ID()))

	pending, running, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, 0, running)
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)

	require.NoError(t, q.Push(ctx, &Task{Tree: 0, Seed: 1}))
	go func() {
		task, _, err := q.Pull(ctx)
		if err == nil && task != nil {
			q.Complete(ctx, task.ID())
		}
	}()

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, WaitFor(wctx, q))
}

// TestWaitForCancelled verifies WaitFor honors its context while
// tasks are still pending.
func TestWaitForCancelled(t *testing.T) {
	ctx := context.Background()
	q := New()
	defer q.Stop(ctx)
	require.NoError(t, q.Push(ctx, &Task{Tree: 0, Seed: 1}))

	wctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := WaitFor(wctx, q)
	require.Error(t, err)
}

func TestTaskID(t *testing.T) {
	task := &Task{Tree: 12, Seed: 99}
	assert.Equal(t, "12", task.ID())
}
