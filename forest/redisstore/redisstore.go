/*
Package redisstore provides a forest.TreeStore backed by a redis
database, so growth workers spread across several processes can
contribute trees to one forest.
*/
package redisstore

import (
	"context"
	"fmt"

	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/tree"
	"gopkg.in/redis.v5"
)

/*
TreeEncodeDecoder is an interface for objects that allow encoding
trees into slices of bytes and decoding them back to trees.
*/
type TreeEncodeDecoder interface {

	//Encode receives a *tree.Tree
	//and returns a slice of bytes with the tree
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Tree) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *tree.Tree decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*tree.Tree, error)
}

type redisStore struct {
	rc      *redis.Client
	prefix  string
	tencdec TreeEncodeDecoder
}

//New builds a forest.TreeStore backed by a redis DB
func New(rc *redis.Client, prefix string, tencdec TreeEncodeDecoder) forest.TreeStore {
	return &redisStore{rc, prefix, tencdec}
}

func (rs *redisStore) Store(ctx context.Context, t *tree.Tree) error {
	redisID := rs.keyFor(t.Index)
	data, err := rs.tencdec.Encode(t)
	if err != nil {
		return fmt.Errorf("storing tree %q: encoding tree: %v", redisID, err)
	}
	_, err = rs.rc.Set(redisID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("storing tree %q in redis: %v", redisID, err)
	}
	return nil
}

func (rs *redisStore) Get(ctx context.Context, index int) (*tree.Tree, error) {
	data, err := rs.rc.Get(rs.keyFor(index)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %d: %v", index, err)
	}
	t, err := rs.tencdec.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %d: decoding: %v", index, err)
	}
	return t, nil
}

func (rs *redisStore) Count(ctx context.Context) (int, error) {
	keys, err := rs.rc.Keys(fmt.Sprintf("%s:*", rs.prefix)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting trees in redis: %v", err)
	}
	return len(keys), nil
}

func (rs *redisStore) Close(ctx context.Context) error {
	return nil
}

func (rs *redisStore) keyFor(index int) string {
	return fmt.Sprintf("%s:%d", rs.prefix, index)
}
