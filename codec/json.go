package codec

import (
	"encoding/json"
	"io"

	gojson "github.com/goccy/go-json"
)

const indent = "  "

// JSON encodes with encoding/json.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(v)
}

// GoJSON encodes with github.com/goccy/go-json, which is faster on the
// large float matrices of cycle and partition queries.
type GoJSON struct{}

func (GoJSON) Name() string { return "go-json" }

func (GoJSON) Encode(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(v)
}
