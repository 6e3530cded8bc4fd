package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSON decodes a body into a generic tree of maps, slices, strings,
// json.Number, bools and nils. Numbers stay as json.Number so record
// identifiers like 2026001234 keep their exact digits.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode json")
	}
	return v, nil
}

// DecodeJSONObject decodes a single JSON object into T.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode json object")
	}
	return &obj, nil
}
