// Package dag walks the commit graph gait builds on top of the object
// store. History here is a multi-rooted, mostly-linear DAG: a merge
// commit has two or more parents, but every other commit has at most
// one. Walking "first-parent" (always following parents[0]) therefore
// reproduces a branch's own linear history even across merges, the
// same convention git follows for `--first-parent` log traversal.
package dag

import (
	"context"
	"errors"
	"io"

	"github.com/automateyournetwork/gait/internal/schema"
)

// ErrStop lets a ForEach callback end iteration early without that
// being reported as a failure.
var ErrStop = errors.New("dag: stop iteration")

// Loader resolves a commit oid to its decoded Commit. The Repository
// Engine satisfies this by wrapping its object store and schema
// conversion.
type Loader interface {
	LoadCommit(ctx context.Context, oid string) (schema.Commit, error)
}

// CommitRecord pairs a decoded commit with the oid it was loaded from,
// since schema.Commit itself carries no identity.
type CommitRecord struct {
	OID    string
	Commit schema.Commit
}

// FirstParentIter walks a branch's history from a starting commit
// following parents[0] only, stopping at a root commit (no parents) or
// once a previously-visited oid is seen again (a cycle guard; commits
// are meant to be acyclic but a corrupt store could loop).
type FirstParentIter struct {
	loader  Loader
	next    string
	visited map[string]bool
	closed  bool
}

// NewFirstParentIter builds an iterator starting at startOID. An empty
// startOID produces an iterator that immediately yields io.EOF, matching
// an empty branch (no commits yet).
func NewFirstParentIter(loader Loader, startOID string) *FirstParentIter {
	return &FirstParentIter{loader: loader, next: startOID, visited: map[string]bool{}}
}

// Next returns the next commit in first-parent order, or io.EOF once
// the walk is exhausted.
func (it *FirstParentIter) Next(ctx context.Context) (*CommitRecord, error) {
	if it.closed || it.next == "" {
		return nil, io.EOF
	}
	oid := it.next
	if it.visited[oid] {
		it.Close()
		return nil, io.EOF
	}
	it.visited[oid] = true
	c, err := it.loader.LoadCommit(ctx, oid)
	if err != nil {
		it.Close()
		return nil, err
	}
	if len(c.Parents) > 0 {
		it.next = c.Parents[0]
	} else {
		it.next = ""
	}
	return &CommitRecord{OID: oid, Commit: c}, nil
}

// ForEach visits every commit in first-parent order. A callback
// returning ErrStop ends the walk without propagating an error; any
// other error aborts the walk and is returned.
func (it *FirstParentIter) ForEach(ctx context.Context, cb func(*CommitRecord) error) error {
	defer it.Close()
	for {
		rec, err := it.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := cb(rec); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close marks the iterator exhausted; subsequent Next calls return
// io.EOF.
func (it *FirstParentIter) Close() {
	it.closed = true
	it.next = ""
}

// WalkFirstParent collects up to limit commits from startOID in
// first-parent order (most recent first). limit <= 0 means unlimited.
func WalkFirstParent(ctx context.Context, loader Loader, startOID string, limit int) ([]CommitRecord, error) {
	it := NewFirstParentIter(loader, startOID)
	var out []CommitRecord
	err := it.ForEach(ctx, func(rec *CommitRecord) error {
		out = append(out, *rec)
		if limit > 0 && len(out) >= limit {
			return ErrStop
		}
		return nil
	})
	return out, err
}

// ReachableFirstParent returns the set of commit oids reachable from
// fromOID by first-parent traversal, fromOID included. Used by the
// revert-memory consistency check: a manifest is "consistent with" a
// head commit when every commit_id it references appears in this set.
func ReachableFirstParent(ctx context.Context, loader Loader, fromOID string) (map[string]bool, error) {
	records, err := WalkFirstParent(ctx, loader, fromOID, 0)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.OID] = true
	}
	return set, nil
}
