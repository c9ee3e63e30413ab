package gait

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/automateyournetwork/gait/internal/config"
	"github.com/automateyournetwork/gait/internal/schema"
)

func mustInit(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func TestInitLayout(t *testing.T) {
	repo := mustInit(t)
	for _, p := range []string{"objects", "refs/heads/main", "HEAD"} {
		if _, err := os.Stat(filepath.Join(repo.gaitDir, p)); err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
	}
}

func TestInitIdempotent(t *testing.T) {
	dir := t.TempDir()
	repo1, err := Init(dir)
	if err != nil {
		t.Fatalf("init 1: %v", err)
	}
	defer repo1.Close()
	if _, _, err := repo1.RecordTurn(schema.NewTurn("hi", "hello", schema.NewTurnParams{}), ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	before, err := repo1.HeadCommit()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	repo2, err := Init(dir)
	if err != nil {
		t.Fatalf("init 2 should be a no-op, got error: %v", err)
	}
	defer repo2.Close()
	after, err := repo2.HeadCommit()
	if err != nil {
		t.Fatalf("head 2: %v", err)
	}
	if before != after {
		t.Fatalf("expected re-init to leave history untouched: %s != %s", before, after)
	}
}

// S1 — init + record
func TestS1InitAndRecord(t *testing.T) {
	repo := mustInit(t)
	turnID, commitID, err := repo.RecordTurn(schema.NewTurn("hi", "hello", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record-turn: %v", err)
	}
	head, err := repo.HeadCommit()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head != commitID {
		t.Fatalf("expected head to equal returned commit id")
	}
	commit, err := repo.GetCommit(commitID)
	if err != nil {
		t.Fatalf("get commit: %v", err)
	}
	if len(commit.TurnIDs) != 1 || commit.TurnIDs[0] != turnID {
		t.Fatalf("expected turn_ids == [turn_id], got %v", commit.TurnIDs)
	}
	if len(commit.Parents) != 0 {
		t.Fatalf("expected no parents for the first commit, got %v", commit.Parents)
	}
}

// Round-trip law: get_commit(HEAD).turn_ids[0] loaded equals the
// original turn.
func TestRoundTripTurnThroughCommit(t *testing.T) {
	repo := mustInit(t)
	turn := schema.NewTurn("question", "answer", schema.NewTurnParams{})
	_, commitID, err := repo.RecordTurn(turn, "")
	if err != nil {
		t.Fatalf("record-turn: %v", err)
	}
	commit, err := repo.GetCommit(commitID)
	if err != nil {
		t.Fatalf("get commit: %v", err)
	}
	got, err := repo.GetTurn(commit.TurnIDs[0])
	if err != nil {
		t.Fatalf("get turn: %v", err)
	}
	if got.User.Text != turn.User.Text || got.Assistant.Text != turn.Assistant.Text {
		t.Fatalf("round-tripped turn does not match original: %+v", got)
	}
}

// S2 — branch inherits memory
func TestS2BranchInheritsMemory(t *testing.T) {
	repo := mustInit(t)
	_, c, err := repo.RecordTurn(schema.NewTurn("u", "a", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record-turn: %v", err)
	}
	m, err := repo.PinCommit(c, "baseline")
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := repo.CreateBranch("experiment", "", true); err != nil {
		t.Fatalf("create-branch: %v", err)
	}
	mainMem, err := repo.ReadMemoryRef("main")
	if err != nil {
		t.Fatalf("read memory ref main: %v", err)
	}
	expMem, err := repo.ReadMemoryRef("experiment")
	if err != nil {
		t.Fatalf("read memory ref experiment: %v", err)
	}
	if mainMem != m || expMem != m {
		t.Fatalf("expected both branches to share memory oid %s, got main=%s experiment=%s", m, mainMem, expMem)
	}
}

// S3 — branch without inheritance
func TestS3BranchWithoutInheritance(t *testing.T) {
	repo := mustInit(t)
	_, c, err := repo.RecordTurn(schema.NewTurn("u", "a", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record-turn: %v", err)
	}
	m, err := repo.PinCommit(c, "baseline")
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := repo.CreateBranch("no_mem", "", false); err != nil {
		t.Fatalf("create-branch: %v", err)
	}
	noMem, err := repo.ReadMemoryRef("no_mem")
	if err != nil {
		t.Fatalf("read memory ref: %v", err)
	}
	if noMem == "" || noMem == m {
		t.Fatalf("expected no_mem's memory oid to be non-empty and differ from %s, got %s", m, noMem)
	}
	manifest, err := repo.GetMemory("no_mem")
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if len(manifest.Items) != 0 {
		t.Fatalf("expected no_mem's memory to start empty, got %+v", manifest.Items)
	}
}

// S4 — merge with memory
func TestS4MergeWithMemory(t *testing.T) {
	repo := mustInit(t)
	_, c1, err := repo.RecordTurn(schema.NewTurn("u1", "a1", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if _, err := repo.PinCommit(c1, "main"); err != nil {
		t.Fatalf("pin c1: %v", err)
	}
	mainBeforeMerge, err := repo.HeadCommit()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if err := repo.CreateBranch("experiment", "", true); err != nil {
		t.Fatalf("create-branch: %v", err)
	}
	if err := repo.Checkout("experiment"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	_, c2, err := repo.RecordTurn(schema.NewTurn("u2", "a2", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if _, err := repo.PinCommit(c2, "exp"); err != nil {
		t.Fatalf("pin c2: %v", err)
	}
	if err := repo.Checkout("main"); err != nil {
		t.Fatalf("checkout main: %v", err)
	}

	mergeCommitID, err := repo.Merge("experiment", "", true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	mc, err := repo.GetCommit(mergeCommitID)
	if err != nil {
		t.Fatalf("get merge commit: %v", err)
	}
	if !mc.IsMerge() {
		t.Fatalf("expected merge commit kind")
	}
	if len(mc.Parents) != 2 || mc.Parents[0] != mainBeforeMerge {
		t.Fatalf("expected parents=[main_before_merge, exp_head], got %v", mc.Parents)
	}
	if mc.Meta["memory_merged"] != true {
		t.Fatalf("expected memory_merged true in meta, got %+v", mc.Meta)
	}
	before := mc.Meta["memory_target_before"]
	after := mc.Meta["memory_target_after"]
	if before == after {
		t.Fatalf("expected memory_target_before to differ from memory_target_after")
	}

	manifest, err := repo.GetMemory("main")
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	c1Turn, err := repo.GetCommit(c1)
	if err != nil {
		t.Fatalf("get c1: %v", err)
	}
	c2Turn, err := repo.GetCommit(c2)
	if err != nil {
		t.Fatalf("get c2: %v", err)
	}
	if !manifest.HasTurn(c1Turn.TurnIDs[0]) || !manifest.HasTurn(c2Turn.TurnIDs[0]) {
		t.Fatalf("expected merged memory to contain both turns, got %+v", manifest.Items)
	}
}

// S5 — revert + memory rewind
func TestS5RevertAndMemoryRewind(t *testing.T) {
	repo := mustInit(t)
	_, c1, err := repo.RecordTurn(schema.NewTurn("u1", "a1", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	m1, err := repo.PinCommit(c1, "baseline")
	if err != nil {
		t.Fatalf("pin c1: %v", err)
	}
	_, c2, err := repo.RecordTurn(schema.NewTurn("u2", "a2", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	m2, err := repo.PinCommit(c2, "second")
	if err != nil {
		t.Fatalf("pin c2: %v", err)
	}
	if m1 == m2 {
		t.Fatalf("expected distinct memory oids after two pins")
	}

	if _, err := repo.ResetBranch(c1); err != nil {
		t.Fatalf("reset-branch: %v", err)
	}
	oldOID, newOID, err := repo.RewindMemoryToHead("main", c1)
	if err != nil {
		t.Fatalf("rewind-memory: %v", err)
	}
	if oldOID != m2 || newOID != m1 {
		t.Fatalf("expected rewind (old,new) == (%s,%s), got (%s,%s)", m2, m1, oldOID, newOID)
	}
	memRef, err := repo.ReadMemoryRef("main")
	if err != nil {
		t.Fatalf("read memory ref: %v", err)
	}
	if memRef != m1 {
		t.Fatalf("expected memory ref to be %s, got %s", m1, memRef)
	}
	manifest, err := repo.GetMemory("main")
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if len(manifest.Items) != 1 || manifest.Items[0].Note != "baseline" {
		t.Fatalf("expected exactly one item noted baseline, got %+v", manifest.Items)
	}
}

// S6 — log ordering
func TestS6LogOrdering(t *testing.T) {
	repo := mustInit(t)
	const n = 4
	var commits []string
	for i := 0; i < n; i++ {
		_, c, err := repo.RecordTurn(schema.NewTurn("u", "a", schema.NewTurnParams{}), "")
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		commits = append(commits, c)
	}
	records, err := repo.Log(n)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d commits, got %d", n, len(records))
	}
	for i, rec := range records {
		want := commits[n-1-i]
		if rec.OID != want {
			t.Fatalf("expected newest-first order at index %d to be %s, got %s", i, want, rec.OID)
		}
		if i < len(records)-1 {
			if len(rec.Commit.Parents) == 0 || rec.Commit.Parents[0] != records[i+1].OID {
				t.Fatalf("expected parents[0] of %s to equal next yielded commit %s", rec.OID, records[i+1].OID)
			}
		}
	}
}

const bogusOID = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

// A branch head must never be left dangling: resetting to an id that
// was never stored has to fail instead of silently writing the ref.
func TestResetBranchRejectsUnknownCommit(t *testing.T) {
	repo := mustInit(t)
	if _, _, err := repo.RecordTurn(schema.NewTurn("u", "a", schema.NewTurnParams{}), ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	before, err := repo.HeadCommit()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, err := repo.ResetBranch(bogusOID); !IsErrNotFound(err) {
		t.Fatalf("expected NotFound for unstored commit id, got %v", err)
	}
	after, err := repo.HeadCommit()
	if err != nil {
		t.Fatalf("head after: %v", err)
	}
	if after != before {
		t.Fatalf("expected failed reset to leave head untouched: %s != %s", after, before)
	}
}

func TestCreateBranchRejectsUnknownFromCommit(t *testing.T) {
	repo := mustInit(t)
	if err := repo.CreateBranch("dangling", bogusOID, true); !IsErrNotFound(err) {
		t.Fatalf("expected NotFound for unstored from-commit, got %v", err)
	}
	if _, err := repo.ReadBranchHead("dangling"); !IsErrNotFound(err) {
		t.Fatalf("expected branch not to be created, got %v", err)
	}
}

func TestDefaultRevertTargetNamesBranchInError(t *testing.T) {
	repo := mustInit(t)
	_, err := repo.DefaultRevertTarget()
	if !IsErrEmptyBranch(err) {
		t.Fatalf("expected EmptyBranch, got %v", err)
	}
	var eb *ErrEmptyBranch
	if !errors.As(err, &eb) || eb.Branch != "main" {
		t.Fatalf("expected error to name branch main, got %+v", err)
	}
}

func TestUnpinOutOfRange(t *testing.T) {
	repo := mustInit(t)
	if _, err := repo.UnpinIndex(1); !IsErrOutOfRange(err) {
		t.Fatalf("expected OutOfRange for empty manifest, got %v", err)
	}
}

func TestCreateBranchAlreadyExists(t *testing.T) {
	repo := mustInit(t)
	if err := repo.CreateBranch("main", "", true); !IsErrAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestCheckoutNotFound(t *testing.T) {
	repo := mustInit(t)
	if err := repo.Checkout("nope"); !IsErrNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMergeEmptyBranch(t *testing.T) {
	repo := mustInit(t)
	if err := repo.CreateBranch("experiment", "", true); err != nil {
		t.Fatalf("create-branch: %v", err)
	}
	if _, err := repo.Merge("experiment", "", false); !IsErrEmptyBranch(err) {
		t.Fatalf("expected EmptyBranch, got %v", err)
	}
}

func TestBudgetForMemoryAggregatesTokens(t *testing.T) {
	repo := mustInit(t)
	in1, out1 := int64(10), int64(20)
	t1 := schema.NewTurn("q1", "a1", schema.NewTurnParams{Tokens: schema.Tokens{InputTotal: &in1, OutputTotal: &out1}})
	_, c1, err := repo.RecordTurn(t1, "")
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	t2 := schema.NewTurn("q2", "a2", schema.NewTurnParams{})
	_, c2, err := repo.RecordTurn(t2, "")
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if _, err := repo.PinCommit(c1, ""); err != nil {
		t.Fatalf("pin 1: %v", err)
	}
	if _, err := repo.PinCommit(c2, ""); err != nil {
		t.Fatalf("pin 2: %v", err)
	}
	budget, err := repo.BudgetForMemory()
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if budget.TokensInputTotal != 10 || budget.TokensOutputTotal != 20 {
		t.Fatalf("unexpected token totals: %+v", budget)
	}
	if budget.PinnedItems != 2 {
		t.Fatalf("expected 2 pinned items, got %d", budget.PinnedItems)
	}
	if budget.UnknownTokenFields != 1 {
		t.Fatalf("expected 1 turn with unknown token fields, got %d", budget.UnknownTokenFields)
	}
}

func TestBuildContextBundleCompactAndFull(t *testing.T) {
	repo := mustInit(t)
	_, c, err := repo.RecordTurn(schema.NewTurn("q", "a", schema.NewTurnParams{Visibility: schema.VisibilityShareable}), "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := repo.PinCommit(c, "note"); err != nil {
		t.Fatalf("pin: %v", err)
	}
	compact, err := repo.BuildContextBundle(false)
	if err != nil {
		t.Fatalf("compact bundle: %v", err)
	}
	if len(compact.Items) != 1 || compact.Items[0].Index != 1 {
		t.Fatalf("unexpected compact bundle: %+v", compact)
	}
	if compact.Items[0].Visibility != "" {
		t.Fatalf("expected compact mode to omit visibility")
	}
	full, err := repo.BuildContextBundle(true)
	if err != nil {
		t.Fatalf("full bundle: %v", err)
	}
	if full.Items[0].Visibility != schema.VisibilityShareable {
		t.Fatalf("expected full mode to include visibility, got %+v", full.Items[0])
	}
}

// TestReflogStampsConfiguredUser checks that the identity in
// .gait/config flows into the "by" field of memory-reflog entries.
func TestReflogStampsConfiguredUser(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	repo.Close()

	cfg := config.Default()
	cfg.User = config.User{Name: "Ada", Email: "ada@example.com"}
	if err := config.Save(filepath.Join(dir, gaitDirName), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()
	_, c, err := reopened.RecordTurn(schema.NewTurn("u", "a", schema.NewTurnParams{}), "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := reopened.PinCommit(c, "baseline"); err != nil {
		t.Fatalf("pin: %v", err)
	}

	entries, err := reopened.refs.ReadReflog("main")
	if err != nil {
		t.Fatalf("read reflog: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected at least one reflog entry")
	}
	last := entries[len(entries)-1]
	if last.By != "Ada <ada@example.com>" {
		t.Fatalf("expected reflog entry stamped with configured user, got %q", last.By)
	}
}

// TestOpenSweepsLockLeftByCrashedProcess simulates a writer that died
// mid-update, leaving its ".lock" file behind: a fresh process opening
// the same repository must still be able to write that ref, instead of
// being permanently locked out.
func TestOpenSweepsLockLeftByCrashedProcess(t *testing.T) {
	dir := t.TempDir()
	repo, err := Init(dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	repo.Close()

	lockPath := filepath.Join(dir, gaitDirName, "refs/heads/main.lock")
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatalf("simulate crashed lock: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lockPath, past, past); err != nil {
		t.Fatalf("backdate lock: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("expected stale lock to be swept on open, stat err=%v", err)
	}
	if _, _, err := reopened.RecordTurn(schema.NewTurn("hi", "hello", schema.NewTurnParams{}), ""); err != nil {
		t.Fatalf("record after sweep should succeed: %v", err)
	}
}
