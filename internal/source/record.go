package source

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one external entity as delivered by the source: an opaque mapping
// of named fields. Nested objects decode as map[string]any.
type Record map[string]any

// Encode serializes r for storage. Decode(Encode(r)) reproduces r.
func Encode(r Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return string(b), nil
}

// Decode parses a serialized record. Numbers are kept as json.Number so that
// values survive the round trip unchanged.
func Decode(data string) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}

// Fallback returns the fixed sample records used when the live source is
// unavailable. Each call returns fresh maps.
func Fallback() []Record {
	return []Record{
		{
			"name":    "Leanne Graham",
			"company": map[string]any{"name": "Romaguera-Crona"},
			"address": map[string]any{"city": "Gwenborough"},
		},
		{
			"name":    "Ervin Howell",
			"company": map[string]any{"name": "Deckow-Crist"},
			"address": map[string]any{"city": "Wisokyburgh"},
		},
		{
			"name":    "Clementine Bauch",
			"company": map[string]any{"name": "Romaguera-Jacobson"},
			"address": map[string]any{"city": "McKenziehaven"},
		},
	}
}
