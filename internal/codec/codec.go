// Package codec implements the canonical serialization that every
// content address in gait is built on: a deterministic byte encoding of
// JSON-shaped values (mappings with string keys, ordered sequences,
// strings, integers, booleans, and null) plus the SHA-256 object id
// derived from it.
//
// The encoding has no insignificant whitespace, sorts mapping keys
// lexicographically, and never escapes non-ASCII text, so two
// processes on two platforms that construct the same logical value
// always produce the same bytes and therefore the same object id.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ErrUnsupportedValue is returned by Encode when a value (or a value
// nested inside a mapping/sequence) isn't one of the canonical value
// kinds: map[string]any, []any, string, bool, nil, or an integer.
type ErrUnsupportedValue struct {
	Value any
}

func (e *ErrUnsupportedValue) Error() string {
	return fmt.Sprintf("codec: unsupported value of type %T", e.Value)
}

// Encode serializes v to its canonical byte representation. The same
// logical value always encodes to the same bytes regardless of map key
// insertion order.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectID returns the lowercase hex SHA-256 digest of Encode(v).
func ObjectID(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of already-encoded
// canonical bytes. Exposed so callers that hold the encoded form (e.g.
// the object store, which needs the bytes for both the id and the
// on-disk write) don't have to encode twice.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		encodeString(buf, val)
		return nil
	case map[string]any:
		return encodeMap(buf, val)
	case []any:
		return encodeSlice(buf, val)
	case json.Number:
		i, err := asInteger(val)
		if err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		i, err := asInteger(val)
		if err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	default:
		return &ErrUnsupportedValue{Value: v}
	}
}

func encodeMap(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encodeValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeSlice(buf *bytes.Buffer, s []any) error {
	buf.WriteByte('[')
	for i, item := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

const hexDigits = "0123456789abcdef"

// encodeString writes v as a JSON string literal without HTML escaping
// and without escaping non-ASCII runes -- only the characters the JSON
// grammar requires (quote, backslash, and control characters) are
// escaped.
func encodeString(buf *bytes.Buffer, v string) {
	buf.WriteByte('"')
	for _, r := range v {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[(r>>4)&0xf])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// asInteger accepts a json.Number or float64 that represents an exact
// integer and returns it as int64. The canonical value model has no
// float type, so any fractional value is rejected.
func asInteger(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, &ErrUnsupportedValue{Value: v}
		}
		return floatToInt(f, v)
	case float64:
		return floatToInt(n, v)
	default:
		return 0, &ErrUnsupportedValue{Value: v}
	}
}

func floatToInt(f float64, orig any) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, &ErrUnsupportedValue{Value: orig}
	}
	return int64(f), nil
}
