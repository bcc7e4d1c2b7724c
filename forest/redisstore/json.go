package redisstore

import (
	"encoding/json"

	"github.com/MaiRajborirug/SPORF/tree"
)

type jsonTreeEncodeDecoder struct{}

// NewJSONTreeEncodeDecoder returns a TreeEncodeDecoder that encodes
// trees as JSON documents.
func NewJSONTreeEncodeDecoder() TreeEncodeDecoder {
	return &jsonTreeEncodeDecoder{}
}

func (*jsonTreeEncodeDecoder) Encode(t *tree.Tree) ([]byte, error) {
	return json.Marshal(t)
}

func (*jsonTreeEncodeDecoder) Decode(data []byte) (*tree.Tree, error) {
	t := &tree.Tree{}
	err := json.Unmarshal(data, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}
