package gait

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/dag"
	"github.com/automateyournetwork/gait/internal/refstore"
	"github.com/automateyournetwork/gait/internal/schema"
)

// ResetBranch sets the current branch's head to target (a full oid or
// prefix) unconditionally -- no ancestry check is performed, the
// caller chooses the destination. The target must name a stored
// commit: a branch head either resolves to a real commit or is empty,
// never dangling. Returns the resolved full oid.
func (r *Repository) ResetBranch(target string) (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	full, err := r.resolve(target)
	if err != nil {
		return "", err
	}
	if _, err := r.getCommit(full); err != nil {
		return "", err
	}
	if err := r.refs.WriteBranchHead(branch, full); err != nil {
		return "", wrapIO("revert: write branch head", err)
	}
	logrus.Infof("gait: reset branch %s to %s", branch, shortOID(full))
	return full, nil
}

// ResetBranchToEmpty empties the current branch's head ref, used when
// reverting past a branch's first commit (there is no parent to land
// on).
func (r *Repository) ResetBranchToEmpty() error {
	branch, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	if err := r.refs.WriteBranchHead(branch, ""); err != nil {
		return wrapIO("revert: write branch head", err)
	}
	logrus.Infof("gait: reset branch %s to empty", branch)
	return nil
}

// DefaultRevertTarget computes the commit a bare `revert` (no explicit
// target) should land on: the current HEAD commit's first parent, or
// "" if HEAD has no parents (reverting the branch's only commit empties
// the branch).
func (r *Repository) DefaultRevertTarget() (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	head, err := r.headOf(branch)
	if err != nil {
		return "", err
	}
	if head == "" {
		return "", &ErrEmptyBranch{Branch: branch}
	}
	commit, err := r.getCommit(head)
	if err != nil {
		return "", err
	}
	if len(commit.Parents) == 0 {
		return "", nil
	}
	return commit.Parents[0], nil
}

// RewindMemoryToHead scans branch's memory reflog, newest entry first,
// for the most recent manifest that is consistent with headCommit: one
// whose every commit_id is first-parent-reachable from headCommit. If
// none qualifies, branch's memory is rewound to its canonical empty
// manifest. Returns (old_oid, new_oid).
func (r *Repository) RewindMemoryToHead(branch, headCommit string) (oldOID, newOID string, err error) {
	oldOID, err = r.memoryOf(branch)
	if err != nil {
		return "", "", err
	}

	reachable, err := dag.ReachableFirstParent(context.Background(), r.loader(), headCommit)
	if err != nil {
		return "", "", err
	}

	entries, err := r.refs.ReadReflog(branch)
	if err != nil {
		return "", "", wrapIO("rewind-memory: read reflog", err)
	}

	chosen := ""
	for i := len(entries) - 1; i >= 0; i-- {
		candidateOID := entries[i].NewOID
		if candidateOID == "" {
			continue
		}
		manifest, err := r.getManifest(candidateOID)
		if err != nil {
			continue
		}
		if manifestConsistentWith(manifest, reachable) {
			chosen = candidateOID
			break
		}
	}

	if chosen == "" {
		empty := schema.NewEmptyManifest(branch)
		chosen, err = r.put(empty.ToValue())
		if err != nil {
			return "", "", err
		}
	}

	if err := r.refs.WriteMemoryRef(branch, chosen); err != nil {
		return "", "", wrapIO("rewind-memory: write memory ref", err)
	}
	if err := r.refs.AppendReflog(branch, refstore.ReflogEntry{
		OldOID: oldOID,
		NewOID: chosen,
		Op:     "rewind",
		At:     nowISO(),
		Note:   "rewound to head " + shortOID(headCommit),
		By:     r.committer(),
	}); err != nil {
		return "", "", wrapIO("rewind-memory: append reflog", err)
	}

	logrus.Infof("gait: rewound %s's memory from %s to %s", branch, shortOID(oldOID), shortOID(chosen))
	return oldOID, chosen, nil
}

func manifestConsistentWith(m schema.MemoryManifest, reachable map[string]bool) bool {
	for _, item := range m.Items {
		if item.CommitID == "" {
			continue
		}
		if !reachable[item.CommitID] {
			return false
		}
	}
	return true
}
