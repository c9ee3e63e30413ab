package schema

import (
	"encoding/json"

	"golang.org/x/text/unicode/norm"
)

// VisibilityPrivate and VisibilityShareable are the only legal values
// of Turn.Visibility.
const (
	VisibilityPrivate   = "private"
	VisibilityShareable = "shareable"
)

// Tokens aggregates token counts for a turn. Counts are never computed
// here -- callers (a model-calling layer outside this module) supply
// whatever they measured or estimated, and Tokens only carries them.
type Tokens struct {
	InputTotal  *int64
	OutputTotal *int64
	Estimated   bool
	ByRole      map[string]int64
}

// Message is the {type, text} shape shared by Turn.User and
// Turn.Assistant.
type Message struct {
	Type string
	Text string
}

// Turn is one immutable user/assistant exchange.
type Turn struct {
	Schema     string
	CreatedAt  string
	User       Message
	Assistant  Message
	Context    map[string]any
	Tools      map[string]any
	Model      map[string]any
	Tokens     Tokens
	Visibility string
}

// NewTurnParams holds the optional fields of a new Turn; zero values
// mean "omit".
type NewTurnParams struct {
	Context    map[string]any
	Tools      map[string]any
	Model      map[string]any
	Tokens     Tokens
	Visibility string
}

// NewTurn builds a v0 Turn. User and assistant text are NFC-normalized
// so that the same conversation entered through editors/platforms using
// different Unicode normalization forms hashes identically.
func NewTurn(userText, assistantText string, p NewTurnParams) Turn {
	if p.Visibility == "" {
		p.Visibility = VisibilityPrivate
	}
	if p.Context == nil {
		p.Context = map[string]any{}
	}
	if p.Tools == nil {
		p.Tools = map[string]any{}
	}
	if p.Model == nil {
		p.Model = map[string]any{}
	}
	return Turn{
		Schema:    TurnSchema,
		CreatedAt: nowISO(),
		User:      Message{Type: "message", Text: norm.NFC.String(userText)},
		Assistant: Message{Type: "message", Text: norm.NFC.String(assistantText)},
		Context:    p.Context,
		Tools:      p.Tools,
		Model:      p.Model,
		Tokens:     p.Tokens,
		Visibility: p.Visibility,
	}
}

// Validate checks that t satisfies the invariants spec.md places on
// Turn: required string fields, non-negative token counters, and a
// legal visibility value.
func (t Turn) Validate() error {
	if t.Schema != TurnSchema {
		return &SchemaError{Schema: TurnSchema, Field: "schema", Reason: "must be " + TurnSchema}
	}
	if t.User.Text == "" && t.User.Type == "" {
		return &SchemaError{Schema: TurnSchema, Field: "user", Reason: "required"}
	}
	if t.Assistant.Type == "" && t.Assistant.Text == "" {
		return &SchemaError{Schema: TurnSchema, Field: "assistant", Reason: "required"}
	}
	if t.Tokens.InputTotal != nil && *t.Tokens.InputTotal < 0 {
		return &SchemaError{Schema: TurnSchema, Field: "tokens.input_total", Reason: "must be non-negative"}
	}
	if t.Tokens.OutputTotal != nil && *t.Tokens.OutputTotal < 0 {
		return &SchemaError{Schema: TurnSchema, Field: "tokens.output_total", Reason: "must be non-negative"}
	}
	for role, n := range t.Tokens.ByRole {
		if n < 0 {
			return &SchemaError{Schema: TurnSchema, Field: "tokens.by_role." + role, Reason: "must be non-negative"}
		}
	}
	switch t.Visibility {
	case VisibilityPrivate, VisibilityShareable:
	default:
		return &SchemaError{Schema: TurnSchema, Field: "visibility", Reason: "must be private or shareable"}
	}
	return nil
}

// ToValue converts t to the canonical map[string]any shape the codec
// and object store operate on.
func (t Turn) ToValue() map[string]any {
	byRole := make(map[string]any, len(t.Tokens.ByRole))
	for role, n := range t.Tokens.ByRole {
		byRole[role] = n
	}
	tokens := map[string]any{
		"estimated": t.Tokens.Estimated,
		"by_role":   byRole,
	}
	if t.Tokens.InputTotal != nil {
		tokens["input_total"] = *t.Tokens.InputTotal
	} else {
		tokens["input_total"] = nil
	}
	if t.Tokens.OutputTotal != nil {
		tokens["output_total"] = *t.Tokens.OutputTotal
	} else {
		tokens["output_total"] = nil
	}
	return map[string]any{
		"schema":     t.Schema,
		"created_at": t.CreatedAt,
		"user":       map[string]any{"type": t.User.Type, "text": t.User.Text},
		"assistant":  map[string]any{"type": t.Assistant.Type, "text": t.Assistant.Text},
		"context":    t.Context,
		"tools":      t.Tools,
		"model":      t.Model,
		"tokens":     tokens,
		"visibility": t.Visibility,
	}
}

// TurnFromValue parses a value previously produced by ToValue (i.e.
// read back from the object store) into a Turn.
func TurnFromValue(v any) (Turn, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Turn{}, &SchemaError{Schema: TurnSchema, Field: "", Reason: "not an object"}
	}
	schemaName, _ := asString(m, "schema")
	if schemaName != TurnSchema {
		return Turn{}, &SchemaError{Schema: TurnSchema, Field: "schema", Reason: "unknown or missing schema tag"}
	}
	createdAt, _ := asString(m, "created_at")
	user, err := messageFromValue(m, "user")
	if err != nil {
		return Turn{}, err
	}
	assistant, err := messageFromValue(m, "assistant")
	if err != nil {
		return Turn{}, err
	}
	context, _ := asMap(m, "context")
	tools, _ := asMap(m, "tools")
	model, _ := asMap(m, "model")
	tokens, err := tokensFromValue(m["tokens"])
	if err != nil {
		return Turn{}, err
	}
	visibility, _ := asString(m, "visibility")
	t := Turn{
		Schema:     schemaName,
		CreatedAt:  createdAt,
		User:       user,
		Assistant:  assistant,
		Context:    context,
		Tools:      tools,
		Model:      model,
		Tokens:     tokens,
		Visibility: visibility,
	}
	if err := t.Validate(); err != nil {
		return Turn{}, err
	}
	return t, nil
}

func messageFromValue(m map[string]any, field string) (Message, error) {
	raw, ok := m[field]
	if !ok {
		return Message{}, &SchemaError{Schema: TurnSchema, Field: field, Reason: "required"}
	}
	mm, ok := raw.(map[string]any)
	if !ok {
		return Message{}, &SchemaError{Schema: TurnSchema, Field: field, Reason: "must be an object"}
	}
	text, ok := asString(mm, "text")
	if !ok {
		return Message{}, &SchemaError{Schema: TurnSchema, Field: field + ".text", Reason: "required string"}
	}
	typ, _ := asString(mm, "type")
	return Message{Type: typ, Text: text}, nil
}

func tokensFromValue(v any) (Tokens, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Tokens{}, nil
	}
	t := Tokens{ByRole: map[string]int64{}}
	if n, ok := intPointer(m["input_total"]); ok {
		t.InputTotal = n
	}
	if n, ok := intPointer(m["output_total"]); ok {
		t.OutputTotal = n
	}
	if b, ok := m["estimated"].(bool); ok {
		t.Estimated = b
	}
	if byRole, ok := m["by_role"].(map[string]any); ok {
		for role, raw := range byRole {
			n, ok := asInt64(raw)
			if !ok {
				return Tokens{}, &SchemaError{Schema: TurnSchema, Field: "tokens.by_role." + role, Reason: "must be an integer"}
			}
			t.ByRole[role] = n
		}
	}
	return t, nil
}

func intPointer(v any) (*int64, bool) {
	if v == nil {
		return nil, false
	}
	n, ok := asInt64(v)
	if !ok {
		return nil, false
	}
	return &n, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}
