package gait

import (
	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/schema"
)

// RecordTurn stores turn and wraps it in a new commit that extends the
// current branch. Returns the turn's and commit's object ids.
//
// If the commit is written successfully but the branch-head update
// fails, the commit object is left orphaned but harmless and RecordTurn
// returns the error. Put is idempotent, so retrying with the same turn
// reuses the same turn_id; the retried commit is stamped with a fresh
// created_at, so its commit_id matches the orphan's only when both fall
// within the same second.
func (r *Repository) RecordTurn(turn schema.Turn, message string) (turnID, commitID string, err error) {
	if err := turn.Validate(); err != nil {
		return "", "", err
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", "", err
	}
	head, err := r.headOf(branch)
	if err != nil {
		return "", "", err
	}

	turnID, err = r.put(turn.ToValue())
	if err != nil {
		return "", "", err
	}

	var parents []string
	if head != "" {
		parents = []string{head}
	}
	commit := schema.NewCommit([]string{turnID}, parents, branch, schema.CommitKindAuto, message, nil)
	commitID, err = r.put(commit.ToValue())
	if err != nil {
		return "", "", err
	}
	if err := r.refs.WriteBranchHead(branch, commitID); err != nil {
		return "", "", wrapIO("record-turn: write branch head", err)
	}
	logrus.Infof("gait: recorded turn %s as commit %s on branch %s", shortOID(turnID), shortOID(commitID), branch)
	return turnID, commitID, nil
}

// GetTurn loads and decodes the turn named by oid (accepts a prefix).
func (r *Repository) GetTurn(oid string) (schema.Turn, error) {
	full, err := r.resolve(oid)
	if err != nil {
		return schema.Turn{}, err
	}
	return r.getTurn(full)
}

// GetCommit loads and decodes the commit named by oid (accepts a
// prefix).
func (r *Repository) GetCommit(oid string) (schema.Commit, error) {
	full, err := r.resolve(oid)
	if err != nil {
		return schema.Commit{}, err
	}
	return r.getCommit(full)
}

// GetMemory loads the current memory manifest for branch.
func (r *Repository) GetMemory(branch string) (schema.MemoryManifest, error) {
	oid, err := r.memoryOf(branch)
	if err != nil {
		return schema.MemoryManifest{}, err
	}
	return r.getManifest(oid)
}

// ReadBranchHead exposes the raw branch-head oid (may be "").
func (r *Repository) ReadBranchHead(branch string) (string, error) {
	return r.headOf(branch)
}

// ReadMemoryRef exposes the raw memory-manifest oid for branch.
func (r *Repository) ReadMemoryRef(branch string) (string, error) {
	return r.memoryOf(branch)
}

func shortOID(oid string) string {
	if len(oid) <= 10 {
		return oid
	}
	return oid[:10]
}
