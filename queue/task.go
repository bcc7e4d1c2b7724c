package queue

import (
	"fmt"
)

// Task represents one tree to be grown for a forest. Tasks are
// pushed for every tree index before any worker starts pulling, so
// tree indices are assigned deterministically regardless of how the
// workers are scheduled.
type Task struct {
	// The forest index of the tree to grow.
	Tree int `json:"tree"`
	// The seed for the tree's random draw stream, derived from the
	// global seed and the tree index.
	Seed int64 `json:"seed"`
}

// ID returns a string that identifies the task, derived from its
// tree index.
func (t *Task) ID() string {
	return fmt.Sprintf("%d", t.Tree)
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task tree:%d}", t.Tree)
}
