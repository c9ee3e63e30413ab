package gait

import (
	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/refstore"
	"github.com/automateyournetwork/gait/internal/schema"
)

// CreateBranch creates a new branch head. fromCommit, if non-empty, is
// resolved and used as the branch's starting commit; otherwise the
// current branch's head is used (which may be "", an empty branch).
// When inheritMemory is true and the current branch's memory manifest
// is non-empty, the new branch starts with a copy of that manifest's
// oid; otherwise it gets a fresh canonical empty manifest.
func (r *Repository) CreateBranch(name, fromCommit string, inheritMemory bool) error {
	if r.refs.BranchExists(name) {
		return &ErrAlreadyExists{Kind: "branch", Name: name}
	}
	sourceBranch, err := r.CurrentBranch()
	if err != nil {
		return err
	}

	start := ""
	if fromCommit != "" {
		start, err = r.resolve(fromCommit)
		if err != nil {
			return err
		}
		if _, err := r.getCommit(start); err != nil {
			return err
		}
	} else {
		start, err = r.headOf(sourceBranch)
		if err != nil {
			return err
		}
	}
	if err := r.refs.WriteBranchHead(name, start); err != nil {
		return wrapIO("create-branch: write branch head", err)
	}

	sourceMemOID, err := r.memoryOf(sourceBranch)
	if err != nil {
		return err
	}
	sourceManifest, err := r.getManifest(sourceMemOID)
	if err != nil {
		return err
	}

	var newMemOID string
	var note string
	if inheritMemory && len(sourceManifest.Items) > 0 {
		newMemOID = sourceMemOID
		note = "inherited memory from " + sourceBranch
	} else {
		empty := schema.NewEmptyManifest(name)
		newMemOID, err = r.put(empty.ToValue())
		if err != nil {
			return err
		}
		note = "fresh empty memory"
	}
	if err := r.refs.WriteMemoryRef(name, newMemOID); err != nil {
		return wrapIO("create-branch: write memory ref", err)
	}
	if err := r.refs.AppendReflog(name, refstore.ReflogEntry{
		OldOID: "",
		NewOID: newMemOID,
		Op:     "branch",
		At:     nowISO(),
		Note:   note,
		By:     r.committer(),
	}); err != nil {
		return wrapIO("create-branch: append reflog", err)
	}

	logrus.Infof("gait: created branch %s from %s (%s)", name, sourceBranch, note)
	return nil
}

// Checkout switches HEAD to an existing branch.
func (r *Repository) Checkout(name string) error {
	if !r.refs.BranchExists(name) {
		return &ErrNotFound{Kind: "branch", Name: name}
	}
	if err := r.refs.WriteHEAD(name); err != nil {
		return wrapIO("checkout: write HEAD", err)
	}
	logrus.Infof("gait: checked out branch %s", name)
	return nil
}
