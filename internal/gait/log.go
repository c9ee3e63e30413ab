package gait

import (
	"context"

	"github.com/automateyournetwork/gait/internal/dag"
)

// Log returns up to limit commits from the current branch's head in
// first-parent order, most recent first. limit <= 0 means unlimited.
func (r *Repository) Log(limit int) ([]dag.CommitRecord, error) {
	head, err := r.HeadCommit()
	if err != nil {
		return nil, err
	}
	return dag.WalkFirstParent(context.Background(), r.loader(), head, limit)
}

// Show loads a single commit by oid or prefix, resolving "HEAD" to the
// current branch's head commit.
func (r *Repository) Show(ref string) (dag.CommitRecord, error) {
	oid := ref
	if ref == "" || ref == "HEAD" {
		head, err := r.HeadCommit()
		if err != nil {
			return dag.CommitRecord{}, err
		}
		if head == "" {
			return dag.CommitRecord{}, &ErrEmptyBranch{Branch: ""}
		}
		oid = head
	}
	full, err := r.resolve(oid)
	if err != nil {
		return dag.CommitRecord{}, err
	}
	commit, err := r.getCommit(full)
	if err != nil {
		return dag.CommitRecord{}, err
	}
	return dag.CommitRecord{OID: full, Commit: commit}, nil
}

// LastCommitWithTurns walks first-parent from the current branch's
// head and returns the first commit whose turn_ids is non-empty.
func (r *Repository) LastCommitWithTurns() (dag.CommitRecord, bool, error) {
	head, err := r.HeadCommit()
	if err != nil {
		return dag.CommitRecord{}, false, err
	}
	it := dag.NewFirstParentIter(r.loader(), head)
	var found dag.CommitRecord
	ok := false
	err = it.ForEach(context.Background(), func(rec *dag.CommitRecord) error {
		if len(rec.Commit.TurnIDs) > 0 {
			found = *rec
			ok = true
			return dag.ErrStop
		}
		return nil
	})
	if err != nil {
		return dag.CommitRecord{}, false, err
	}
	return found, ok, nil
}
