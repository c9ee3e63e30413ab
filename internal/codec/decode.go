package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses canonical-encoded bytes back into a value tree built
// from map[string]any, []any, string, bool, nil, and json.Number (so
// that integers round-trip exactly instead of being widened to
// float64, which is encoding/json's default and would silently lose
// precision for large token counts).
func Decode(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("codec: decode: trailing data after value")
	}
	return v, nil
}
