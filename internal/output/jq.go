package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	staterr "statik/internal/errors"
)

// ApplyJQ runs a jq expression over the JSON form of a result and returns
// the rendered outputs, one JSON document per line.
func ApplyJQ(v interface{}, expr string) ([]byte, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, staterr.Newf(staterr.ConfigInvalid, "invalid jq expression: %v", err)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	iter := query.Run(doc)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return nil, fmt.Errorf("jq evaluation failed: %w", err)
		}
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(out); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
