package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automateyournetwork/gait/internal/codec"
)

func TestNewTurnRoundTrip(t *testing.T) {
	turn := NewTurn("hello", "world", NewTurnParams{})
	if err := turn.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	v := turn.ToValue()
	got, err := TurnFromValue(v)
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	if got.User.Text != "hello" || got.Assistant.Text != "world" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if got.Visibility != VisibilityPrivate {
		t.Fatalf("expected default visibility private, got %q", got.Visibility)
	}
}

func TestNewTurnNFCNormalizesText(t *testing.T) {
	// "e" + combining acute accent (NFD) should normalize to the
	// precomposed "é" (NFC) during construction.
	decomposed := "é"
	turn := NewTurn(decomposed, "ok", NewTurnParams{})
	if turn.User.Text == decomposed {
		t.Fatalf("expected text to be NFC-normalized, got unchanged %q", turn.User.Text)
	}
	if turn.User.Text != "é" {
		t.Fatalf("expected precomposed e-acute, got %q", turn.User.Text)
	}
}

func TestTurnValidateRejectsNegativeTokens(t *testing.T) {
	neg := int64(-1)
	turn := NewTurn("a", "b", NewTurnParams{Tokens: Tokens{InputTotal: &neg}})
	if err := turn.Validate(); err == nil {
		t.Fatalf("expected validation error for negative input_total")
	}
}

func TestTurnValidateRejectsBadVisibility(t *testing.T) {
	turn := NewTurn("a", "b", NewTurnParams{Visibility: "public"})
	if err := turn.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown visibility")
	}
}

func TestNewCommitInfersKind(t *testing.T) {
	c := NewCommit([]string{"turn-oid"}, []string{"parent-1"}, "main", "", "msg", nil)
	if c.Kind != CommitKindAuto {
		t.Fatalf("expected auto kind, got %q", c.Kind)
	}
	m := NewCommit(nil, []string{"p1", "p2"}, "main", "", "merge msg", nil)
	if m.Kind != CommitKindMerge {
		t.Fatalf("expected merge kind, got %q", m.Kind)
	}
	if !m.IsMerge() {
		t.Fatalf("expected IsMerge true")
	}
}

func TestCommitValidateRejectsMismatchedKind(t *testing.T) {
	c := NewCommit(nil, []string{"p1", "p2"}, "main", CommitKindAuto, "msg", nil)
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for merge parents tagged auto")
	}
}

func TestCommitRoundTrip(t *testing.T) {
	c := NewCommit([]string{"turn-oid"}, nil, "main", "", "first", nil)
	v := c.ToValue()
	got, err := CommitFromValue(v)
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	if len(got.TurnIDs) != 1 || got.TurnIDs[0] != "turn-oid" || got.Branch != "main" || len(got.Parents) != 0 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

// TestEntityRoundTripTable exercises ToValue/FromValue for all three
// persisted record kinds side by side; testify/require's Equal keeps
// the per-case assertions to a single line instead of hand-rolled
// field-by-field comparisons repeated three times.
func TestEntityRoundTripTable(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "turn",
			run: func(t *testing.T) {
				turn := NewTurn("hello", "world", NewTurnParams{Visibility: VisibilityShareable})
				got, err := TurnFromValue(turn.ToValue())
				require.NoError(t, err)
				require.Equal(t, turn.User.Text, got.User.Text)
				require.Equal(t, turn.Assistant.Text, got.Assistant.Text)
				require.Equal(t, VisibilityShareable, got.Visibility)
			},
		},
		{
			name: "commit",
			run: func(t *testing.T) {
				c := NewCommit([]string{"turn-oid"}, []string{"parent-1"}, "main", "", "msg", map[string]any{"k": "v"})
				got, err := CommitFromValue(c.ToValue())
				require.NoError(t, err)
				require.Equal(t, c.TurnIDs, got.TurnIDs)
				require.Equal(t, c.Parents, got.Parents)
				require.Equal(t, c.Branch, got.Branch)
				require.Equal(t, c.Kind, got.Kind)
				require.Equal(t, c.Meta, got.Meta)
			},
		},
		{
			name: "manifest",
			run: func(t *testing.T) {
				m := NewEmptyManifest("main").
					WithPinned(MemoryItem{TurnID: "t1", CommitID: "c1", Note: "n1", PinnedAt: "2026-01-01T00:00:00"}).
					WithPinned(MemoryItem{TurnID: "t2", CommitID: "c2", Note: "n2", PinnedAt: "2026-01-02T00:00:00"})
				got, err := MemoryManifestFromValue(m.ToValue())
				require.NoError(t, err)
				require.Equal(t, m.Branch, got.Branch)
				require.Equal(t, m.Items, got.Items)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestEmptyManifestStableByBranch(t *testing.T) {
	a1 := NewEmptyManifest("main")
	a2 := NewEmptyManifest("main")
	id1, err := codec.ObjectID(a1.ToValue())
	if err != nil {
		t.Fatalf("object id a1: %v", err)
	}
	id2, err := codec.ObjectID(a2.ToValue())
	if err != nil {
		t.Fatalf("object id a2: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected one stable content-address per branch, got %s and %s", id1, id2)
	}
	other, err := codec.ObjectID(NewEmptyManifest("other").ToValue())
	if err != nil {
		t.Fatalf("object id other: %v", err)
	}
	if other == id1 {
		t.Fatalf("expected different branch names to address differently")
	}
}

func TestManifestPinDedupsByTurnID(t *testing.T) {
	m := NewEmptyManifest("main")
	m = m.WithPinned(MemoryItem{TurnID: "t1", CommitID: "c1", Note: "first"})
	m = m.WithPinned(MemoryItem{TurnID: "t2", CommitID: "c2", Note: "second"})
	m = m.WithPinned(MemoryItem{TurnID: "t1", CommitID: "c1", Note: "updated"})
	if len(m.Items) != 2 {
		t.Fatalf("expected 2 items after re-pin, got %d", len(m.Items))
	}
	if m.Items[len(m.Items)-1].TurnID != "t1" || m.Items[len(m.Items)-1].Note != "updated" {
		t.Fatalf("expected re-pinned item to move to end with updated note: %+v", m.Items)
	}
}

func TestManifestWithoutIndex(t *testing.T) {
	m := NewEmptyManifest("main")
	m = m.WithPinned(MemoryItem{TurnID: "t1"})
	m = m.WithPinned(MemoryItem{TurnID: "t2"})
	m = m.WithoutIndex(1)
	if len(m.Items) != 1 || m.Items[0].TurnID != "t2" {
		t.Fatalf("expected only t2 to remain, got %+v", m.Items)
	}
}

func TestManifestUnionPrefersTargetOrder(t *testing.T) {
	target := NewEmptyManifest("main").WithPinned(MemoryItem{TurnID: "t1"})
	source := NewEmptyManifest("experiment").WithPinned(MemoryItem{TurnID: "t1"}).WithPinned(MemoryItem{TurnID: "t2"})
	merged := target.UnionWith(source)
	if len(merged.Items) != 2 {
		t.Fatalf("expected deduped union of 2 items, got %d", len(merged.Items))
	}
	if merged.Items[0].TurnID != "t1" || merged.Items[1].TurnID != "t2" {
		t.Fatalf("expected target item first then new source item, got %+v", merged.Items)
	}
	if merged.Branch != "main" {
		t.Fatalf("expected union to keep target's branch name, got %q", merged.Branch)
	}
}

func TestManifestValidateRejectsDuplicateTurnID(t *testing.T) {
	m := MemoryManifest{
		Schema: MemorySchema,
		Branch: "main",
		Items: []MemoryItem{
			{TurnID: "t1"},
			{TurnID: "t1"},
		},
	}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected validation error for duplicate turn_id")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	m := NewEmptyManifest("main").WithPinned(MemoryItem{TurnID: "t1", CommitID: "c1", Note: "n", PinnedAt: "2026-01-01T00:00:00"})
	v := m.ToValue()
	got, err := MemoryManifestFromValue(v)
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].TurnID != "t1" || got.Items[0].Note != "n" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
