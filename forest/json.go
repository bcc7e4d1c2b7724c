package forest

import (
	"encoding/json"
	"fmt"
	"io"
)

/*
WriteJSON takes an io.Writer and a forest and writes the forest to
the writer in JSON format. The JSON document round-trips losslessly
through ReadJSON and is the interchange format between the grow and
pack commands.
*/
func WriteJSON(w io.Writer, f *Forest) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding forest as JSON: %v", err)
	}
	return nil
}

/*
ReadJSON takes an io.Reader with a forest in JSON format and returns
the parsed forest or an error.
*/
func ReadJSON(r io.Reader) (*Forest, error) {
	f := &Forest{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("parsing forest from JSON: %v", err)
	}
	if f.NumTrees() == 0 {
		return nil, fmt.Errorf("parsed forest has no trees")
	}
	return f, nil
}
