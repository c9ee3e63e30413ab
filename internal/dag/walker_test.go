package dag

import (
	"context"
	"testing"

	"github.com/automateyournetwork/gait/internal/schema"
)

type fakeLoader struct {
	commits map[string]schema.Commit
}

func (f *fakeLoader) LoadCommit(ctx context.Context, oid string) (schema.Commit, error) {
	c, ok := f.commits[oid]
	if !ok {
		return schema.Commit{}, errNotFound(oid)
	}
	return c, nil
}

type notFoundErr struct{ oid string }

func (e notFoundErr) Error() string { return "not found: " + e.oid }
func errNotFound(oid string) error  { return notFoundErr{oid: oid} }

func TestWalkFirstParentLinearHistory(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{
		"c3": {TurnIDs: []string{"t3"}, Parents: []string{"c2"}, Kind: "auto", Branch: "main"},
		"c2": {TurnIDs: []string{"t2"}, Parents: []string{"c1"}, Kind: "auto", Branch: "main"},
		"c1": {TurnIDs: []string{"t1"}, Parents: nil, Kind: "auto", Branch: "main"},
	}}
	records, err := WalkFirstParent(context.Background(), loader, "c3", 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(records))
	}
	order := []string{records[0].OID, records[1].OID, records[2].OID}
	want := []string{"c3", "c2", "c1"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestWalkFirstParentEmptyBranch(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{}}
	records, err := WalkFirstParent(context.Background(), loader, "", 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no commits, got %d", len(records))
	}
}

func TestWalkFirstParentFollowsOnlyFirstParentOfMerge(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{
		"mc":     {TurnIDs: nil, Parents: []string{"c-main", "c-exp"}, Kind: "merge", Branch: "main"},
		"c-main": {TurnIDs: []string{"t-main"}, Parents: nil, Kind: "auto", Branch: "main"},
		"c-exp":  {TurnIDs: []string{"t-exp"}, Parents: nil, Kind: "auto", Branch: "experiment"},
	}}
	records, err := WalkFirstParent(context.Background(), loader, "mc", 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 commits (merge + first parent only), got %d", len(records))
	}
	if records[1].OID != "c-main" {
		t.Fatalf("expected second-visited commit to be the first parent c-main, got %s", records[1].OID)
	}
}

func TestWalkFirstParentRespectsLimit(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{
		"c3": {TurnIDs: []string{"t3"}, Parents: []string{"c2"}},
		"c2": {TurnIDs: []string{"t2"}, Parents: []string{"c1"}},
		"c1": {TurnIDs: []string{"t1"}, Parents: nil},
	}}
	records, err := WalkFirstParent(context.Background(), loader, "c3", 2)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 commits under limit, got %d", len(records))
	}
}

func TestReachableFirstParent(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{
		"c2": {TurnIDs: []string{"t2"}, Parents: []string{"c1"}},
		"c1": {TurnIDs: []string{"t1"}, Parents: nil},
	}}
	set, err := ReachableFirstParent(context.Background(), loader, "c2")
	if err != nil {
		t.Fatalf("reachable: %v", err)
	}
	if !set["c1"] || !set["c2"] {
		t.Fatalf("expected both c1 and c2 reachable, got %v", set)
	}
	if set["c3"] {
		t.Fatalf("did not expect c3 to be reachable")
	}
}

func TestWalkFirstParentGuardsAgainstCycle(t *testing.T) {
	loader := &fakeLoader{commits: map[string]schema.Commit{
		"a": {TurnIDs: []string{"ta"}, Parents: []string{"b"}},
		"b": {TurnIDs: []string{"tb"}, Parents: []string{"a"}},
	}}
	records, err := WalkFirstParent(context.Background(), loader, "a", 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected cycle guard to stop after 2 commits, got %d", len(records))
	}
}
