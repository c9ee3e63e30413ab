package schema

// Commit is one node in the turn DAG: an ordered list of parent
// commits plus the ordered list of turns it introduces. A first
// commit on a branch has no parents; a merge commit has two or more
// and introduces no turns of its own (turn history stays reachable
// through both parents).
type Commit struct {
	Schema     string
	CreatedAt  string
	Parents    []string
	TurnIDs    []string
	SnapshotID *string
	Branch     string
	Kind       string
	Message    string
	Meta       map[string]any
}

const (
	CommitKindAuto    = "auto"
	CommitKindBlessed = "blessed"
	CommitKindMerge   = "merge"
)

// NewCommit builds a v0 Commit. kind is inferred from len(parents)
// when left blank: two or more parents makes a "merge" commit,
// otherwise "auto". snapshot_id is always nil in this version --
// working-tree snapshotting is not implemented.
func NewCommit(turnIDs, parents []string, branch, kind, message string, meta map[string]any) Commit {
	if kind == "" {
		if len(parents) >= 2 {
			kind = CommitKindMerge
		} else {
			kind = CommitKindAuto
		}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return Commit{
		Schema:    CommitSchema,
		CreatedAt: nowISO(),
		Parents:   append([]string(nil), parents...),
		TurnIDs:   append([]string(nil), turnIDs...),
		Branch:    branch,
		Kind:      kind,
		Message:   message,
		Meta:      meta,
	}
}

// Validate enforces the invariant that a commit is tagged "merge" if
// and only if it has two or more parents.
func (c Commit) Validate() error {
	if c.Schema != CommitSchema {
		return &SchemaError{Schema: CommitSchema, Field: "schema", Reason: "must be " + CommitSchema}
	}
	isMerge := c.Kind == CommitKindMerge
	hasMergeParents := len(c.Parents) >= 2
	if isMerge != hasMergeParents {
		return &SchemaError{Schema: CommitSchema, Field: "kind", Reason: "must be \"merge\" iff there are 2 or more parents"}
	}
	switch c.Kind {
	case CommitKindAuto, CommitKindBlessed, CommitKindMerge:
	default:
		return &SchemaError{Schema: CommitSchema, Field: "kind", Reason: "must be one of auto, blessed, merge"}
	}
	if c.Branch == "" {
		return &SchemaError{Schema: CommitSchema, Field: "branch", Reason: "required"}
	}
	return nil
}

func (c Commit) ToValue() map[string]any {
	var snapshotID any
	if c.SnapshotID != nil {
		snapshotID = *c.SnapshotID
	}
	return map[string]any{
		"schema":      c.Schema,
		"created_at":  c.CreatedAt,
		"parents":     stringSliceToValue(c.Parents),
		"turn_ids":    stringSliceToValue(c.TurnIDs),
		"snapshot_id": snapshotID,
		"branch":      c.Branch,
		"kind":        c.Kind,
		"message":     c.Message,
		"meta":        c.Meta,
	}
}

func CommitFromValue(v any) (Commit, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Commit{}, &SchemaError{Schema: CommitSchema, Field: "", Reason: "not an object"}
	}
	schemaName, _ := asString(m, "schema")
	if schemaName != CommitSchema {
		return Commit{}, &SchemaError{Schema: CommitSchema, Field: "schema", Reason: "unknown or missing schema tag"}
	}
	createdAt, _ := asString(m, "created_at")
	parents, _ := asStringSlice(m, "parents")
	turnIDs, _ := asStringSlice(m, "turn_ids")
	branch, _ := asString(m, "branch")
	kind, _ := asString(m, "kind")
	message, _ := asString(m, "message")
	meta, _ := asMap(m, "meta")
	var snapshotID *string
	if s, ok := asString(m, "snapshot_id"); ok {
		snapshotID = &s
	}
	c := Commit{
		Schema:     schemaName,
		CreatedAt:  createdAt,
		Parents:    parents,
		TurnIDs:    turnIDs,
		SnapshotID: snapshotID,
		Branch:     branch,
		Kind:       kind,
		Message:    message,
		Meta:       meta,
	}
	if err := c.Validate(); err != nil {
		return Commit{}, err
	}
	return c, nil
}

// IsMerge reports whether c joins two or more parent lines of history.
func (c Commit) IsMerge() bool { return c.Kind == CommitKindMerge }
