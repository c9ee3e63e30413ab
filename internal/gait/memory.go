package gait

import (
	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/refstore"
	"github.com/automateyournetwork/gait/internal/schema"
)

// PinCommit pins every turn introduced by commitID (a full oid or
// prefix) onto the current branch's memory manifest. Turns already
// pinned are left in place -- pinning is additive, not a dedup-and-
// reorder -- only genuinely new turn_ids gain an entry.
func (r *Repository) PinCommit(commitID, note string) (string, error) {
	fullCommitID, err := r.resolve(commitID)
	if err != nil {
		return "", err
	}
	commit, err := r.getCommit(fullCommitID)
	if err != nil {
		return "", err
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	oldMemOID, err := r.memoryOf(branch)
	if err != nil {
		return "", err
	}
	manifest, err := r.getManifest(oldMemOID)
	if err != nil {
		return "", err
	}

	at := nowISO()
	updated := manifest
	added := 0
	for _, turnID := range commit.TurnIDs {
		if updated.HasTurn(turnID) {
			continue
		}
		updated = updated.WithPinned(schema.MemoryItem{
			TurnID:   turnID,
			CommitID: fullCommitID,
			Note:     note,
			PinnedAt: at,
		})
		added++
	}
	if added == 0 {
		logrus.Infof("gait: pin %s added nothing new to %s's memory", shortOID(fullCommitID), branch)
		return oldMemOID, nil
	}

	newMemOID, err := r.put(updated.ToValue())
	if err != nil {
		return "", err
	}
	if err := r.refs.WriteMemoryRef(branch, newMemOID); err != nil {
		return "", wrapIO("pin: write memory ref", err)
	}
	if err := r.refs.AppendReflog(branch, refstore.ReflogEntry{
		OldOID: oldMemOID,
		NewOID: newMemOID,
		Op:     "pin",
		At:     at,
		Note:   note,
		By:     r.committer(),
	}); err != nil {
		return "", wrapIO("pin: append reflog", err)
	}
	logrus.Infof("gait: pinned %d turn(s) from commit %s onto %s", added, shortOID(fullCommitID), branch)
	return newMemOID, nil
}

// UnpinIndex removes the 1-based index i from the current branch's
// memory manifest.
func (r *Repository) UnpinIndex(i int) (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	oldMemOID, err := r.memoryOf(branch)
	if err != nil {
		return "", err
	}
	manifest, err := r.getManifest(oldMemOID)
	if err != nil {
		return "", err
	}
	if i < 1 || i > len(manifest.Items) {
		return "", &ErrOutOfRange{Index: i, Len: len(manifest.Items)}
	}

	updated := manifest.WithoutIndex(i)
	newMemOID, err := r.put(updated.ToValue())
	if err != nil {
		return "", err
	}
	if err := r.refs.WriteMemoryRef(branch, newMemOID); err != nil {
		return "", wrapIO("unpin: write memory ref", err)
	}
	if err := r.refs.AppendReflog(branch, refstore.ReflogEntry{
		OldOID: oldMemOID,
		NewOID: newMemOID,
		Op:     "unpin",
		At:     nowISO(),
		By:     r.committer(),
	}); err != nil {
		return "", wrapIO("unpin: append reflog", err)
	}
	logrus.Infof("gait: unpinned item %d from %s's memory", i, branch)
	return newMemOID, nil
}
