// Package schema defines the three persisted record kinds -- Turn,
// Commit, and MemoryManifest -- as typed Go structs with constructors
// and validators, and converts between them and the generic
// map[string]any value shape the codec and object store operate on.
// Dispatch between the three kinds is by their "schema" discriminator
// field; there is no inheritance, per a tagged-union-over-one-field
// design.
package schema

import (
	"fmt"
	"time"
)

const (
	TurnSchema    = "gait.turn.v0"
	CommitSchema  = "gait.commit.v0"
	MemorySchema  = "gait.memory.v0"
	ContextSchema = "gait.context.v0"
)

// SchemaError reports that a persisted record is missing a required
// field or holds a value of the wrong type/shape for its schema.
type SchemaError struct {
	Schema string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s.%s: %s", e.Schema, e.Field, e.Reason)
}

// nowISO returns the current time in the second-resolution, UTC,
// timezone-free format gait stamps every record with. UTC keeps
// created_at comparable across machines without adding
// timezone-parsing surface anywhere else in the system.
func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}

func asString(m map[string]any, field string) (string, bool) {
	v, ok := m[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asStringSlice(m map[string]any, field string) ([]string, bool) {
	v, ok := m[field]
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func stringSliceToValue(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func asMap(m map[string]any, field string) (map[string]any, bool) {
	v, ok := m[field]
	if !ok || v == nil {
		return map[string]any{}, ok
	}
	mm, ok := v.(map[string]any)
	return mm, ok
}
