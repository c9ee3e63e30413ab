package gait

import (
	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/refstore"
	"github.com/automateyournetwork/gait/internal/schema"
)

// Merge joins sourceBranch's history into the current branch (the
// merge target) with a two-parent merge commit. A merge commit
// introduces no turns of its own; both parent lines of history remain
// independently reachable. When withMemory is true, the target's
// pinned-memory manifest absorbs any of the source's items it doesn't
// already have, target items winning ties and keeping their position.
func (r *Repository) Merge(sourceBranch, message string, withMemory bool) (string, error) {
	target, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	srcHead, err := r.headOf(sourceBranch)
	if err != nil {
		return "", err
	}
	tgtHead, err := r.headOf(target)
	if err != nil {
		return "", err
	}
	if srcHead == "" {
		return "", &ErrEmptyBranch{Branch: sourceBranch}
	}
	if tgtHead == "" {
		return "", &ErrEmptyBranch{Branch: target}
	}
	if srcHead == tgtHead {
		logrus.Infof("gait: merge %s into %s is a no-op (already at %s)", sourceBranch, target, shortOID(tgtHead))
		return tgtHead, nil
	}

	meta := map[string]any{}
	memoryChanged := false
	var newTargetMemOID string

	if withMemory {
		targetMemOID, err := r.memoryOf(target)
		if err != nil {
			return "", err
		}
		sourceMemOID, err := r.memoryOf(sourceBranch)
		if err != nil {
			return "", err
		}
		targetManifest, err := r.getManifest(targetMemOID)
		if err != nil {
			return "", err
		}
		sourceManifest, err := r.getManifest(sourceMemOID)
		if err != nil {
			return "", err
		}

		mergedManifest := targetManifest.UnionWith(sourceManifest)
		newTargetMemOID, err = r.put(mergedManifest.ToValue())
		if err != nil {
			return "", err
		}
		memoryChanged = newTargetMemOID != targetMemOID

		meta["memory_merged"] = true
		meta["memory_target_before"] = targetMemOID
		meta["memory_source"] = sourceMemOID
		meta["memory_target_after"] = newTargetMemOID
	}

	commit := schema.NewCommit(nil, []string{tgtHead, srcHead}, target, schema.CommitKindMerge, message, meta)
	commitID, err := r.put(commit.ToValue())
	if err != nil {
		return "", err
	}
	if err := r.refs.WriteBranchHead(target, commitID); err != nil {
		return "", wrapIO("merge: write branch head", err)
	}

	if memoryChanged {
		if err := r.refs.WriteMemoryRef(target, newTargetMemOID); err != nil {
			return "", wrapIO("merge: write memory ref", err)
		}
		if err := r.refs.AppendReflog(target, refstore.ReflogEntry{
			OldOID: meta["memory_target_before"].(string),
			NewOID: newTargetMemOID,
			Op:     "merge",
			At:     nowISO(),
			Note:   "merged memory from " + sourceBranch,
			By:     r.committer(),
		}); err != nil {
			return "", wrapIO("merge: append reflog", err)
		}
	}

	logrus.Infof("gait: merged %s into %s as commit %s (with_memory=%v)", sourceBranch, target, shortOID(commitID), withMemory)
	return commitID, nil
}
