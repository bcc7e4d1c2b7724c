package redisq

import (
	"context"
	"encoding/json"

	"github.com/MaiRajborirug/SPORF/queue"
)

type jsonEncodeDecoder struct{}

// NewJSONEncodeDecoder returns an EncodeDecoder that encodes tasks
// as JSON documents.
func NewJSONEncodeDecoder() EncodeDecoder {
	return &jsonEncodeDecoder{}
}

func (*jsonEncodeDecoder) Encode(ctx context.Context, t *queue.Task) ([]byte, error) {
	return json.Marshal(t)
}

func (*jsonEncodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Task, error) {
	t := &queue.Task{}
	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}
