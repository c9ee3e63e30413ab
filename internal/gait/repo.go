// Package gait is the public façade over the object store, ref store,
// and schema layer: every mutating operation a caller (the CLI or an
// embedding program) performs goes through a Repository value. A
// Repository holds no in-memory cache across calls -- each method
// opens the files it needs, does its work, and returns, so two
// Repository values pointed at the same directory never disagree.
package gait

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/automateyournetwork/gait/internal/config"
	"github.com/automateyournetwork/gait/internal/dag"
	"github.com/automateyournetwork/gait/internal/objstore"
	"github.com/automateyournetwork/gait/internal/refstore"
	"github.com/automateyournetwork/gait/internal/schema"
)

const (
	gaitDirName = ".gait"
	objectsDir  = "objects"
)

// Repository is a handle bound to one repository root (the directory
// containing ".gait", not ".gait" itself).
type Repository struct {
	root    string
	gaitDir string
	objects *objstore.Store
	refs    *refstore.Store
	cfg     config.Config
}

// Root returns the repository's working directory (the parent of
// ".gait").
func (r *Repository) Root() string { return r.root }

// Close releases the object store's compression workers. Safe to call
// more than once.
func (r *Repository) Close() {
	if r.objects != nil {
		r.objects.Close()
	}
}

// Init creates a new repository layout at path if one does not already
// exist there, and returns a Repository handle either way (idempotent:
// re-running Init on an existing repo is a no-op).
func Init(path string) (*Repository, error) {
	gaitDir := filepath.Join(path, gaitDirName)
	freshInit := false
	if _, err := os.Stat(gaitDir); os.IsNotExist(err) {
		freshInit = true
	}
	if !freshInit {
		if err := refstore.SweepStale(gaitDir, processStart); err != nil {
			return nil, wrapIO("init: sweep stale files", err)
		}
	}
	cfg, err := config.Load(gaitDir)
	if err != nil {
		return nil, wrapIO("init: load config", err)
	}
	objects, err := objstore.Open(filepath.Join(gaitDir, objectsDir), objstore.VerifyNever, cfg.Core.Compression)
	if err != nil {
		return nil, wrapIO("init: open object store", err)
	}
	refs := refstore.Open(gaitDir)
	repo := &Repository{root: path, gaitDir: gaitDir, objects: objects, refs: refs, cfg: cfg}

	if !freshInit {
		logrus.Infof("gait: repository already initialized at %s", path)
		return repo, nil
	}

	defaultBranch := cfg.Core.DefaultBranch
	if err := refs.WriteHEAD(defaultBranch); err != nil {
		return nil, wrapIO("init: write HEAD", err)
	}
	if err := refs.WriteBranchHead(defaultBranch, ""); err != nil {
		return nil, wrapIO("init: write branch head", err)
	}
	emptyManifest := schema.NewEmptyManifest(defaultBranch)
	memOID, err := objects.Put(emptyManifest.ToValue())
	if err != nil {
		return nil, wrapIO("init: store empty manifest", err)
	}
	if err := refs.WriteMemoryRef(defaultBranch, memOID); err != nil {
		return nil, wrapIO("init: write memory ref", err)
	}
	if err := config.Save(gaitDir, cfg); err != nil {
		return nil, wrapIO("init: save config", err)
	}
	logrus.Infof("gait: initialized repository at %s (branch %s)", path, defaultBranch)
	return repo, nil
}

// Discover walks startPath upward looking for a ".gait" directory and
// opens the repository rooted there. Fails with ErrNoRepo if none is
// found before reaching the filesystem root.
func Discover(startPath string) (*Repository, error) {
	abs, err := filepath.Abs(startPath)
	if err != nil {
		return nil, wrapIO("discover", err)
	}
	dir := abs
	for {
		candidate := filepath.Join(dir, gaitDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return Open(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, &ErrNoRepo{StartPath: abs}
		}
		dir = parent
	}
}

// Open returns a Repository handle for a directory already known to
// contain ".gait" (skips the upward walk Discover does).
func Open(root string) (*Repository, error) {
	gaitDir := filepath.Join(root, gaitDirName)
	if err := refstore.SweepStale(gaitDir, processStart); err != nil {
		return nil, wrapIO("open: sweep stale files", err)
	}
	cfg, err := config.Load(gaitDir)
	if err != nil {
		return nil, wrapIO("open: load config", err)
	}
	objects, err := objstore.Open(filepath.Join(gaitDir, objectsDir), objstore.VerifyNever, cfg.Core.Compression)
	if err != nil {
		return nil, wrapIO("open: open object store", err)
	}
	refs := refstore.Open(gaitDir)
	return &Repository{root: root, gaitDir: gaitDir, objects: objects, refs: refs, cfg: cfg}, nil
}

// put stores v and classifies store-layer failures into gait's own
// error vocabulary.
func (r *Repository) put(v map[string]any) (string, error) {
	oid, err := r.objects.Put(v)
	if err != nil {
		return "", wrapIO("put", err)
	}
	return oid, nil
}

func (r *Repository) getTurn(oid string) (schema.Turn, error) {
	v, err := r.objects.Get(oid)
	if err != nil {
		return schema.Turn{}, classifyObjstoreErr("turn", oid, err)
	}
	return schema.TurnFromValue(v)
}

func (r *Repository) getCommit(oid string) (schema.Commit, error) {
	v, err := r.objects.Get(oid)
	if err != nil {
		return schema.Commit{}, classifyObjstoreErr("commit", oid, err)
	}
	return schema.CommitFromValue(v)
}

func (r *Repository) getManifest(oid string) (schema.MemoryManifest, error) {
	v, err := r.objects.Get(oid)
	if err != nil {
		return schema.MemoryManifest{}, classifyObjstoreErr("memory manifest", oid, err)
	}
	return schema.MemoryManifestFromValue(v)
}

func classifyObjstoreErr(kind, oid string, err error) error {
	if objstore.IsNotFound(err) {
		return &ErrNotFound{Kind: kind, Name: oid}
	}
	if objstore.IsCorrupt(err) {
		return &ErrCorrupt{Reason: err.Error()}
	}
	return wrapIO("get "+kind, err)
}

// resolve expands a possibly-abbreviated oid to its full 64-character
// form via the object store's prefix index.
func (r *Repository) resolve(prefix string) (string, error) {
	oid, err := r.objects.Resolve(prefix)
	if err != nil {
		var ae *objstore.AmbiguousError
		if errors.As(err, &ae) {
			return "", &ErrAmbiguous{Prefix: prefix, Matches: ae.Matches}
		}
		if objstore.IsNotFound(err) {
			return "", &ErrNotFound{Kind: "object", Name: prefix}
		}
		return "", wrapIO("resolve", err)
	}
	return oid, nil
}

// committer renders the configured user identity for reflog "by"
// stamping. An anonymous repo stamps an empty string.
func (r *Repository) committer() string {
	u := r.cfg.User
	switch {
	case u.Name != "" && u.Email != "":
		return u.Name + " <" + u.Email + ">"
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return "<" + u.Email + ">"
	default:
		return ""
	}
}

// commitLoader adapts Repository to dag.Loader.
type commitLoader struct{ r *Repository }

func (l commitLoader) LoadCommit(ctx context.Context, oid string) (schema.Commit, error) {
	return l.r.getCommit(oid)
}

func (r *Repository) loader() dag.Loader { return commitLoader{r: r} }

// CurrentBranch returns the name of the checked-out branch.
func (r *Repository) CurrentBranch() (string, error) {
	branch, err := r.refs.ReadHEAD()
	if err != nil {
		if refstore.IsNotFound(err) {
			return "", &ErrNoRepo{StartPath: r.root}
		}
		return "", wrapIO("read HEAD", err)
	}
	return branch, nil
}

// HeadCommit returns the current branch's head commit oid, or "" if
// the branch has no commits yet.
func (r *Repository) HeadCommit() (string, error) {
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	return r.headOf(branch)
}

func (r *Repository) headOf(branch string) (string, error) {
	oid, err := r.refs.ReadBranchHead(branch)
	if err != nil {
		if refstore.IsNotFound(err) {
			return "", &ErrNotFound{Kind: "branch", Name: branch}
		}
		return "", wrapIO("read branch head", err)
	}
	return oid, nil
}

// memoryOf returns the current memory-manifest oid for branch. Every
// branch always has one (invariant 4 in spec.md §8); a missing ref
// means the repository is corrupt.
func (r *Repository) memoryOf(branch string) (string, error) {
	oid, err := r.refs.ReadMemoryRef(branch)
	if err != nil {
		if refstore.IsNotFound(err) {
			return "", &ErrCorrupt{Reason: fmt.Sprintf("branch %q has no memory ref", branch)}
		}
		return "", wrapIO("read memory ref", err)
	}
	return oid, nil
}
