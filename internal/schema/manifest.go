package schema

// MemoryItem is one pinned turn reference within a MemoryManifest.
type MemoryItem struct {
	TurnID   string
	CommitID string
	Note     string
	PinnedAt string
}

func (i MemoryItem) toValue() map[string]any {
	return map[string]any{
		"turn_id":   i.TurnID,
		"commit_id": i.CommitID,
		"note":      i.Note,
		"pinned_at": i.PinnedAt,
	}
}

func memoryItemFromValue(v any) (MemoryItem, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return MemoryItem{}, &SchemaError{Schema: MemorySchema, Field: "items[]", Reason: "item is not an object"}
	}
	turnID, ok := asString(m, "turn_id")
	if !ok || turnID == "" {
		return MemoryItem{}, &SchemaError{Schema: MemorySchema, Field: "items[].turn_id", Reason: "required"}
	}
	commitID, _ := asString(m, "commit_id")
	note, _ := asString(m, "note")
	pinnedAt, _ := asString(m, "pinned_at")
	return MemoryItem{TurnID: turnID, CommitID: commitID, Note: note, PinnedAt: pinnedAt}, nil
}

// MemoryManifest is the ordered, deduplicated list of turns a branch
// currently has pinned as reusable context. Item order is significant
// (it is the user-visible pin order); turn_id values are unique within
// one manifest.
type MemoryManifest struct {
	Schema    string
	CreatedAt string
	Branch    string
	Items     []MemoryItem
}

// emptyManifestCreatedAt pins the canonical empty manifest's timestamp
// so it has exactly one content-address per branch name, no matter when
// it is first materialized. Init, inheritance-disabled branch creation,
// and the memory-rewind fallback all produce the same oid for a given
// branch this way.
const emptyManifestCreatedAt = "1970-01-01T00:00:00"

// NewEmptyManifest builds the canonical empty manifest for branch. Two
// calls with the same branch name produce byte-identical (and thus
// identically content-addressed) manifests; calls for different branch
// names hash differently because the branch field differs.
func NewEmptyManifest(branch string) MemoryManifest {
	return MemoryManifest{
		Schema:    MemorySchema,
		CreatedAt: emptyManifestCreatedAt,
		Branch:    branch,
		Items:     []MemoryItem{},
	}
}

// WithPinned returns a new manifest with item appended, or moved to the
// end if its turn_id was already present (dedup-on-write: a turn may
// appear at most once, and re-pinning refreshes its position and note).
func (m MemoryManifest) WithPinned(item MemoryItem) MemoryManifest {
	items := make([]MemoryItem, 0, len(m.Items)+1)
	for _, existing := range m.Items {
		if existing.TurnID != item.TurnID {
			items = append(items, existing)
		}
	}
	items = append(items, item)
	return MemoryManifest{
		Schema:    MemorySchema,
		CreatedAt: nowISO(),
		Branch:    m.Branch,
		Items:     items,
	}
}

// WithoutIndex returns a new manifest with the 1-based index i removed.
// Callers must validate 1 <= i <= len(m.Items) themselves (the
// out-of-range error belongs to the caller's vocabulary, not schema's).
func (m MemoryManifest) WithoutIndex(i int) MemoryManifest {
	items := make([]MemoryItem, 0, len(m.Items)-1)
	for idx, existing := range m.Items {
		if idx+1 != i {
			items = append(items, existing)
		}
	}
	return MemoryManifest{
		Schema:    MemorySchema,
		CreatedAt: nowISO(),
		Branch:    m.Branch,
		Items:     items,
	}
}

// UnionWith merges other's items into m, keeping m's items first and
// appending any of other's items whose turn_id is not already present,
// in other's order (first-seen order, target precedence).
func (m MemoryManifest) UnionWith(other MemoryManifest) MemoryManifest {
	seen := make(map[string]bool, len(m.Items))
	items := make([]MemoryItem, 0, len(m.Items)+len(other.Items))
	for _, item := range m.Items {
		seen[item.TurnID] = true
		items = append(items, item)
	}
	for _, item := range other.Items {
		if !seen[item.TurnID] {
			seen[item.TurnID] = true
			items = append(items, item)
		}
	}
	return MemoryManifest{
		Schema:    MemorySchema,
		CreatedAt: nowISO(),
		Branch:    m.Branch,
		Items:     items,
	}
}

// HasTurn reports whether turnID is already pinned in m.
func (m MemoryManifest) HasTurn(turnID string) bool {
	for _, item := range m.Items {
		if item.TurnID == turnID {
			return true
		}
	}
	return false
}

func (m MemoryManifest) Validate() error {
	if m.Schema != MemorySchema {
		return &SchemaError{Schema: MemorySchema, Field: "schema", Reason: "must be " + MemorySchema}
	}
	if m.Branch == "" {
		return &SchemaError{Schema: MemorySchema, Field: "branch", Reason: "required"}
	}
	seen := make(map[string]bool, len(m.Items))
	for _, item := range m.Items {
		if seen[item.TurnID] {
			return &SchemaError{Schema: MemorySchema, Field: "items[].turn_id", Reason: "turn_id " + item.TurnID + " appears more than once"}
		}
		seen[item.TurnID] = true
	}
	return nil
}

func (m MemoryManifest) ToValue() map[string]any {
	items := make([]any, len(m.Items))
	for i, item := range m.Items {
		items[i] = item.toValue()
	}
	return map[string]any{
		"schema":     m.Schema,
		"created_at": m.CreatedAt,
		"branch":     m.Branch,
		"items":      items,
	}
}

func MemoryManifestFromValue(v any) (MemoryManifest, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return MemoryManifest{}, &SchemaError{Schema: MemorySchema, Field: "", Reason: "not an object"}
	}
	schemaName, _ := asString(m, "schema")
	if schemaName != MemorySchema {
		return MemoryManifest{}, &SchemaError{Schema: MemorySchema, Field: "schema", Reason: "unknown or missing schema tag"}
	}
	createdAt, _ := asString(m, "created_at")
	branch, _ := asString(m, "branch")
	rawItems, _ := m["items"].([]any)
	items := make([]MemoryItem, 0, len(rawItems))
	for _, raw := range rawItems {
		item, err := memoryItemFromValue(raw)
		if err != nil {
			return MemoryManifest{}, err
		}
		items = append(items, item)
	}
	manifest := MemoryManifest{
		Schema:    schemaName,
		CreatedAt: createdAt,
		Branch:    branch,
		Items:     items,
	}
	if err := manifest.Validate(); err != nil {
		return MemoryManifest{}, err
	}
	return manifest, nil
}
