// Package refstore implements gait's four reference namespaces --
// branch heads, memory heads, per-branch memory reflogs, and the
// singleton HEAD pointer -- as plain text files under a repository's
// ".gait" directory. Every write lands through a lock-file-guarded
// temp-file-then-rename so concurrent readers only ever see a complete
// old or new value, and two writers racing the same ref see a clear
// conflict instead of a torn file.
package refstore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/automateyournetwork/gait/internal/codec"
)

const (
	headsDir        = "refs/heads"
	memoryDir       = "refs/memory"
	memoryReflogDir = "refs/memory-reflog"
	headFile        = "HEAD"
)

// NotFoundError is returned when a ref file doesn't exist at all (as
// opposed to existing with empty content, which means "branch exists,
// no commits yet").
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("refstore: ref %q not found", e.Name) }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// Store is a handle on one repository's reference directory, rooted at
// the repository's ".gait" directory.
type Store struct {
	root string
}

func Open(root string) *Store {
	return &Store{root: root}
}

func (s *Store) headsPath(branch string) string  { return filepath.Join(s.root, headsDir, branch) }
func (s *Store) memoryPath(branch string) string { return filepath.Join(s.root, memoryDir, branch) }
func (s *Store) reflogPath(branch string) string {
	return filepath.Join(s.root, memoryReflogDir, branch)
}
func (s *Store) headPath() string { return filepath.Join(s.root, headFile) }

// BranchExists reports whether a branch head ref has ever been
// created (it may still point at the empty oid if the branch has no
// commits).
func (s *Store) BranchExists(branch string) bool {
	_, err := os.Stat(s.headsPath(branch))
	return err == nil
}

// ReadBranchHead returns the branch's head commit oid, or "" if the
// branch exists but has no commits. Returns NotFoundError if the
// branch itself doesn't exist.
func (s *Store) ReadBranchHead(branch string) (string, error) {
	return readRefFile(s.headsPath(branch), branch)
}

// WriteBranchHead sets the branch's head commit oid ("" is valid and
// means "no commits").
func (s *Store) WriteBranchHead(branch, oid string) error {
	return atomicWriteRef(s.headsPath(branch), oid)
}

// ReadMemoryRef returns the branch's current memory-manifest oid.
// Every branch always has one (invariant: no branch has a head ref and
// no memory ref), so NotFoundError here indicates a corrupted repo.
func (s *Store) ReadMemoryRef(branch string) (string, error) {
	return readRefFile(s.memoryPath(branch), branch)
}

func (s *Store) WriteMemoryRef(branch, oid string) error {
	return atomicWriteRef(s.memoryPath(branch), oid)
}

// ReadHEAD returns the name of the currently checked-out branch.
func (s *Store) ReadHEAD() (string, error) {
	return readRefFile(s.headPath(), "HEAD")
}

func (s *Store) WriteHEAD(branch string) error {
	return atomicWriteRef(s.headPath(), branch)
}

// DeleteRef removes a ref file outright. No repository operation calls
// it.
func (s *Store) DeleteRef(path string) error {
	if err := os.Remove(filepath.Join(s.root, path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("refstore: delete: %w", err)
	}
	return nil
}

// ReflogEntry is one line of a branch's memory reflog: a record of a
// single mutation of refs/memory/<branch>. By is the free-text
// identity of whoever made the change, from the repository config;
// empty for an anonymous repo.
type ReflogEntry struct {
	OldOID string
	NewOID string
	Op     string
	At     string
	Note   string
	By     string
}

func (e ReflogEntry) toValue() map[string]any {
	return map[string]any{
		"old_oid": e.OldOID,
		"new_oid": e.NewOID,
		"op":      e.Op,
		"at":      e.At,
		"note":    e.Note,
		"by":      e.By,
	}
}

func reflogEntryFromValue(v any) (ReflogEntry, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ReflogEntry{}, fmt.Errorf("refstore: reflog record is not an object")
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return ReflogEntry{
		OldOID: str("old_oid"),
		NewOID: str("new_oid"),
		Op:     str("op"),
		At:     str("at"),
		Note:   str("note"),
		By:     str("by"),
	}, nil
}

// AppendReflog appends one entry to a branch's memory reflog. The log
// is append-only and ordered oldest-first, matching read order.
func (s *Store) AppendReflog(branch string, entry ReflogEntry) error {
	path := s.reflogPath(branch)
	line, err := codec.Encode(entry.toValue())
	if err != nil {
		return fmt.Errorf("refstore: append reflog: %w", err)
	}
	return withLock(path, func() error {
		existing, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("refstore: append reflog: %w", err)
		}
		return writeFileAtomic(path, append(existing, append(line, '\n')...))
	})
}

// ReadReflog returns every recorded entry for a branch, oldest first.
// A branch with no memory mutations yet has an empty (not missing)
// reflog.
func (s *Store) ReadReflog(branch string) ([]ReflogEntry, error) {
	f, err := os.Open(s.reflogPath(branch))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("refstore: read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := codec.Decode([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("refstore: read reflog: %w", err)
		}
		entry, err := reflogEntryFromValue(v)
		if err != nil {
			return nil, fmt.Errorf("refstore: read reflog: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("refstore: read reflog: %w", err)
	}
	return entries, nil
}

func readRefFile(path, name string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Name: name}
		}
		return "", fmt.Errorf("refstore: read %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func atomicWriteRef(path, content string) error {
	return withLock(path, func() error {
		return writeFileAtomic(path, []byte(content+"\n"))
	})
}

// SweepStale removes every ".lock" and ".tmp-*" file found under root
// whose mtime is older than cutoff. withLock never clears a lock it
// didn't itself create, and an interrupted atomic write leaves its
// temp file behind, so a process that crashes mid-write leaves both
// kinds of debris forever; callers (Init/Discover) run this once, at
// open time, against a cutoff of "when this process started" so files
// from a still-running sibling process are left alone while those
// orphaned by a dead process are cleared before the repository is used.
func SweepStale(root string, cutoff time.Time) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".lock") && !strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return rmErr
			}
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("refstore: sweep stale files: %w", err)
	}
	return nil
}

// withLock guards path with a sibling ".lock" file created with
// O_EXCL, so a second writer racing the same ref gets a clear error
// instead of silently clobbering the first writer's update.
func withLock(path string, fn func() error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("refstore: %w", err)
	}
	lockPath := path + ".lock"
	fd, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("refstore: %s is locked by a concurrent writer", path)
		}
		return fmt.Errorf("refstore: %w", err)
	}
	fd.Close()
	defer os.Remove(lockPath)
	return fn()
}

func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+uuid.NewString())
	if err != nil {
		return fmt.Errorf("refstore: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("refstore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("refstore: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("refstore: %w", err)
	}
	return nil
}
