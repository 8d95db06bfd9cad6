// Package source implements the Source Store (spec.md §4.2): the single
// mutable input of the compiler. Everything else is a pure function of
// what this package returns.
package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"

	"github.com/jfecher/exc/internal/ids"
)

// fileEntry holds one source file's cached contents plus the change
// tracking the query engine needs: a content hash (to detect a no-op
// rewrite, e.g. an editor save that reproduces identical bytes) and a
// change-version number that only increases when the hash actually
// differs from what was last observed.
type fileEntry struct {
	contents []byte
	hash     [32]byte
	version  uint64
	err      error
}

// Store is the compiler's mutable source store. It is safe for
// concurrent use: file reads are serialized behind a single mutex,
// matching spec.md §5's "the source store serializes file reads".
type Store struct {
	tables *ids.Tables

	mu    sync.Mutex
	files map[ids.FileId]*fileEntry
}

// NewStore creates an empty store backed by the given interner tables.
func NewStore(tables *ids.Tables) *Store {
	return &Store{tables: tables, files: make(map[ids.FileId]*fileEntry)}
}

// FileID interns path and returns its FileId, without reading it. path
// is kept exactly as given rather than resolved to an absolute path:
// internal/imports resolves every import target the same way, by
// joining the importing file's own (possibly relative) directory with
// the imported name, so the two must agree for a given file to always
// intern to the same FileId. It also keeps diagnostics rendering the
// short, relative names spec.md §6 and §8 show (e.g. "import_1.ex:5"),
// not an environment-dependent absolute path.
func (s *Store) FileID(path string) ids.FileId {
	return s.tables.FileID(path)
}

// Read returns the current contents and change-version of a file,
// reading it from disk only when the store holds no entry for it (the
// first access, or the first since MarkAllChanged); a file it already
// holds is re-read from disk only by Rescan. A read failure is not propagated as a Go error
// to the caller of a query — per spec.md §4.2, it becomes a synthetic
// diagnostic and the file is treated as empty; Read itself does return
// the error so the one caller that needs to tell an unreadable root
// file apart from an unreadable import (internal/driver) still can.
func (s *Store) Read(file ids.FileId) ([]byte, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[file]
	if ok {
		return entry.contents, entry.version, entry.err
	}

	return s.load(file, 1)
}

// Rescan re-reads a file from disk and bumps its change-version if and
// only if the content hash differs from what was last cached. This is
// the operation that the incremental cache's invalidation hinges on
// (spec.md §4.1 "Invalidation"): a query that merely touched the disk
// without changing bytes must not look changed.
func (s *Store) Rescan(file ids.FileId) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.files[file]
	nextVersion := uint64(1)
	if hadPrev {
		nextVersion = prev.version
	}

	_, newVersion, loadErr := s.load(file, nextVersion+1)
	if hadPrev {
		changed = newVersion != prev.version
	} else {
		changed = true
	}
	return changed, loadErr
}

// load performs the actual disk read and updates the cached entry. If
// the new hash matches the previous entry's hash, candidateVersion is
// discarded and the file's version is left unchanged.
func (s *Store) load(file ids.FileId, candidateVersion uint64) ([]byte, uint64, error) {
	path := s.tables.FilePath(file)

	contents, readErr := os.ReadFile(path)
	hash := sha256.Sum256(contents)

	prev, hadPrev := s.files[file]
	version := candidateVersion
	if hadPrev && prev.hash == hash {
		version = prev.version
	}

	entry := &fileEntry{contents: contents, hash: hash, version: version, err: wrapReadErr(path, readErr)}
	s.files[file] = entry

	return entry.contents, entry.version, entry.err
}

// MarkAllChanged forgets every cached file entry, so that each file is
// treated as potentially changed, per spec.md §4.1 "the first action on
// startup is to mark every source file as potentially changed". It does
// not itself re-read any file; the next Read of a file loads it afresh
// (at version 1), and early cutoff in source.ReadDef, which compares
// bytes, suppresses any further propagation for files whose bytes did
// not actually change on disk.
func (s *Store) MarkAllChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[ids.FileId]*fileEntry)
}

// Version reports a file's current change-version without reading it,
// returning ok=false if the file has never been read.
func (s *Store) Version(file ids.FileId) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[file]
	if !ok {
		return 0, false
	}
	return entry.version, true
}

// Text is the value an input query over the Source Store produces: the
// bytes, plus the change-version they're tagged with. ReadDef's early
// cutoff compares the bytes (and ReadError), not the version, since
// versions restart at 1 in every fresh process. ReadError carries a read failure's message rather
// than a Go error, per spec.md §4.2: "failure to read is reported as a
// synthetic diagnostic; downstream queries see an empty AST" — not as an
// engine failure, so it must round-trip through persistence and
// early-cutoff equality like any other query output.
type Text struct {
	Bytes     []byte
	Version   uint64
	ReadError string
}

func wrapReadErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to read source file %q: %w", path, err)
}
