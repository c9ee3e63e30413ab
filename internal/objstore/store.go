// Package objstore implements the write-once, content-addressed object
// store: a key/value store keyed by the hex digest of the canonical
// encoding of whatever value was put in, laid out as a hash-fan-out
// directory tree (the first two hex characters name a subdirectory,
// the remaining 62 name the file) so that objects are spread across at
// most 256 subdirectories instead of piling up in one.
//
// Objects are written once and never mutated: Put is idempotent (the
// same value always yields the same object id and a second Put is a
// no-op), and every write lands via a temp-file-then-rename so
// concurrent readers only ever observe a complete object, never a
// torn one.
package objstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/automateyournetwork/gait/internal/codec"
)

// VerifyMode controls whether Get recomputes and checks the object id
// of every value it reads back. Production code leaves this off (the
// fan-out path already names the object by its id); tests can force it
// to catch silent on-disk corruption.
type VerifyMode int

const (
	VerifyNever VerifyMode = iota
	VerifyAlways
)

const minPrefixLen = 4

// zstdMagic is the little-endian magic number at the start of every
// zstd frame (RFC 8478 §3.1.1).
const zstdMagic = 0xFD2FB528

// NotFoundError is returned by Get and Resolve when no object matches.
type NotFoundError struct {
	OID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("objstore: object %q not found", e.OID) }

// CorruptError is returned by Get when the stored bytes fail to decode
// as canonical JSON, or (under VerifyAlways) when the recomputed object
// id disagrees with the path the object was read from.
type CorruptError struct {
	OID    string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("objstore: object %q is corrupt: %s", e.OID, e.Reason)
}

// AmbiguousError is returned by Resolve when a prefix matches more than
// one stored object.
type AmbiguousError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("objstore: prefix %q is ambiguous (%d matches)", e.Prefix, len(e.Matches))
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsCorrupt(err error) bool {
	var e *CorruptError
	return errors.As(err, &e)
}

func IsAmbiguous(err error) bool {
	var e *AmbiguousError
	return errors.As(err, &e)
}

// Store is a handle on one repository's object directory.
type Store struct {
	root     string
	verify   VerifyMode
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// Open returns a handle on the object store rooted at dir (normally
// "<repo>/.gait/objects"), creating the directory if needed.
// Compression controls whether new objects are zstd-compressed on
// disk; either way Get transparently decompresses objects that are.
func Open(dir string, verify VerifyMode, compress bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objstore: open: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("objstore: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("objstore: zstd decoder: %w", err)
	}
	return &Store{root: dir, verify: verify, compress: compress, enc: enc, dec: dec}, nil
}

// Close releases the store's compression workers.
func (s *Store) Close() {
	s.enc.Close()
	s.dec.Close()
}

func (s *Store) pathFor(oid string) string {
	return filepath.Join(s.root, oid[:2], oid[2:])
}

// Put encodes v canonically, computes its object id, and writes it to
// the store if not already present. It always returns the full object
// id, whether or not a write actually happened.
func (s *Store) Put(v any) (string, error) {
	b, err := codec.Encode(v)
	if err != nil {
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	oid := codec.HashBytes(b)
	path := s.pathFor(oid)
	if _, err := os.Stat(path); err == nil {
		return oid, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	payload := b
	if s.compress {
		payload = s.enc.EncodeAll(b, nil)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		// Another writer may have raced us to the same content; since
		// the bytes are identical by construction (same oid), that is
		// success, not a conflict.
		if _, statErr := os.Stat(path); statErr == nil {
			return oid, nil
		}
		return "", fmt.Errorf("objstore: put: %w", err)
	}
	return oid, nil
}

// Get loads and decodes the object named by oid (a full 64-character
// hex id).
func (s *Store) Get(oid string) (any, error) {
	raw, err := os.ReadFile(s.pathFor(oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{OID: oid}
		}
		return nil, fmt.Errorf("objstore: get: %w", err)
	}
	b := raw
	if looksZstd(raw) {
		if b, err = s.dec.DecodeAll(raw, nil); err != nil {
			return nil, &CorruptError{OID: oid, Reason: err.Error()}
		}
	}
	v, err := codec.Decode(b)
	if err != nil {
		return nil, &CorruptError{OID: oid, Reason: err.Error()}
	}
	if s.verify == VerifyAlways {
		reencoded, err := codec.Encode(v)
		if err != nil || codec.HashBytes(reencoded) != oid {
			return nil, &CorruptError{OID: oid, Reason: "recomputed object id does not match"}
		}
	}
	return v, nil
}

// Resolve looks up the full object id matching a hex prefix of at
// least 4 characters, scanning the fan-out directory named by the
// prefix's first byte. A full-length id is not taken on faith: it
// resolves only if the object is actually stored, so every successful
// Resolve names an existing object.
func (s *Store) Resolve(prefix string) (string, error) {
	if len(prefix) < minPrefixLen {
		return "", fmt.Errorf("objstore: resolve: prefix %q shorter than %d characters", prefix, minPrefixLen)
	}
	if len(prefix) >= 64 {
		oid := prefix[:64]
		if _, err := os.Stat(s.pathFor(oid)); err != nil {
			if os.IsNotExist(err) {
				return "", &NotFoundError{OID: oid}
			}
			return "", fmt.Errorf("objstore: resolve: %w", err)
		}
		return oid, nil
	}
	dirName, rest := prefix[:2], prefix[2:]
	entries, err := os.ReadDir(filepath.Join(s.root, dirName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{OID: prefix}
		}
		return "", fmt.Errorf("objstore: resolve: %w", err)
	}
	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), rest) {
			matches = append(matches, dirName+e.Name())
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{OID: prefix}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Prefix: prefix, Matches: matches}
	}
}

func looksZstd(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return binary.LittleEndian.Uint32(b[:4]) == zstdMagic
}
