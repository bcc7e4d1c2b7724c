/*
Package redisq provides a queue.Queue backed by a redis database, so
the tree-growth tasks of one forest can be shared by workers spread
across several processes.
*/
package redisq

import (
	"context"
	"fmt"
	"time"

	"github.com/MaiRajborirug/SPORF/queue"
	redis "gopkg.in/redis.v5"
)

/*
EncodeDecoder is an interface for objects that allow encoding tasks
as slices of bytes and decoding them back to tasks. It is used to
serialize tasks into a representation to store on redis.
*/
type EncodeDecoder interface {

	//Encode receives a *queue.Task
	//and returns a slice of bytes with the task encoded or an
	//error if the encoding could not be performed for
	//some reason. Its counterpart is Decode.
	Encode(context.Context, *queue.Task) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *queue.Task decoded from the slice of bytes
	//or an error if the decoding could not be performed
	//for some reason.
	Decode(context.Context, []byte) (*queue.Task, error)
}

type redisQ struct {
	id         string
	rc         *redis.Client
	allTaskCtx context.Context
	allTaskCF  context.CancelFunc
	EncodeDecoder
}

/*
New returns a queue.Queue that uses the given redis client as a
backend. It uses the given id to prefix the keys used on the redis
client to keep the queue's data, which are the following:
  - id:pending is the key to a list with the ids of the pending tasks
  - id:running is the key to a list with the ids of the running tasks
  - id:task:task_id is the key to a string that holds the task data.
    Tasks are encoded and decoded using the given EncodeDecoder.

The returned queue is safe for concurrent use by multiple goroutines
and multiple processes: pulling moves a task id between the pending
and running lists atomically.
*/
func New(id string, rc *redis.Client, encDec EncodeDecoder) queue.Queue {
	ctx, cf := context.WithCancel(context.Background())
	return &redisQ{
		id:            id,
		rc:            rc,
		allTaskCtx:    ctx,
		allTaskCF:     cf,
		EncodeDecoder: encDec,
	}
}

func (rq *redisQ) Push(ctx context.Context, t *queue.Task) error {
	data, err := rq.Encode(ctx, t)
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %v", t.ID(), err)
	}
	tDataKey := rq.taskKey(t.ID())
	_, err = rq.rc.Set(tDataKey, string(data), time.Duration(0)).Result()
	if err != nil {
		return fmt.Errorf("pushing task %s to queue: %v", t.ID(), err)
	}
	_, err = rq.rc.LPush(rq.pendingListKey(), t.ID()).Result()
	if err != nil {
		rq.rc.Del(tDataKey)
		return fmt.Errorf("pushing task %s to queue: %v", t.ID(), err)
	}
	return nil
}

func (rq *redisQ) Pull(ctx context.Context) (*queue.Task, context.Context, error) {
	id, err := rq.rc.RPopLPush(rq.pendingListKey(), rq.runningListKey()).Result()
	if err == redis.Nil {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("pulling task from queue: %v", err)
	}
	data, err := rq.rc.Get(rq.taskKey(id)).Result()
	if err != nil {
		rq.Drop(ctx, id)
		return nil, nil, fmt.Errorf("pulling task %s: retrieving data: %v", id, err)
	}
	t, err := rq.Decode(ctx, []byte(data))
	if err != nil {
		rq.Drop(ctx, id)
		return nil, nil, fmt.Errorf("pulling task %s: decoding data: %v", id, err)
	}
	return t, rq.allTaskCtx, nil
}

func (rq *redisQ) Drop(ctx context.Context, id string) error {
	removed, err := rq.rc.LRem(rq.runningListKey(), 0, id).Result()
	if err != nil {
		return fmt.Errorf("dropping %s: %v", id, err)
	}
	if removed == 0 {
		return nil
	}
	_, err = rq.rc.LPush(rq.pendingListKey(), id).Result()
	if err != nil {
		return fmt.Errorf("dropping %s: returning to pending list: %v", id, err)
	}
	return nil
}

func (rq *redisQ) Complete(ctx context.Context, id string) error {
	_, err := rq.rc.LRem(rq.runningListKey(), 0, id).Result()
	if err != nil {
		return fmt.Errorf("completing %s: %v", id, err)
	}
	_, err = rq.rc.Del(rq.taskKey(id)).Result()
	if err != nil {
		return fmt.Errorf("completing %s: removing task data: %v", id, err)
	}
	return nil
}

func (rq *redisQ) Count(context.Context) (int, int, error) {
	// count pending and running lists at the same time to prevent a
	// task moving between them from triggering a false "work
	// finished" event
	cmd := redis.NewSliceCmd(
		"EVAL",
		`return {redis.call("LLEN", KEYS[1]), redis.call("LLEN", KEYS[2])}`,
		2,
		rq.pendingListKey(),
		rq.runningListKey(),
	)
	err := rq.rc.Process(cmd)
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %v", err)
	}
	v, err := cmd.Result()
	if err != nil {
		return 0, 0, fmt.Errorf("counting tasks: %v", err)
	}
	if len(v) != 2 {
		return 0, 0, fmt.Errorf("counting tasks: redis returned %d counts instead of 2", len(v))
	}
	p64, ok := v[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: cannot extract integer pending tasks count from %v (%T)", v[0], v[0])
	}
	r64, ok := v[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("counting tasks: cannot extract integer running tasks count from %v (%T)", v[1], v[1])
	}
	return int(p64), int(r64), nil
}

func (rq *redisQ) Stop(ctx context.Context) error {
	rq.allTaskCF()
	return nil
}

func (rq *redisQ) taskKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", rq.id, taskID)
}

func (rq *redisQ) pendingListKey() string {
	return fmt.Sprintf("%s:pending", rq.id)
}

func (rq *redisQ) runningListKey() string {
	return fmt.Sprintf("%s:running", rq.id)
}
