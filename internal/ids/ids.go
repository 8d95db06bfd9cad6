// Package ids provides the stable, dense integer identifiers used
// throughout the compiler: FileId, SymbolId, and DefId. Every durable
// entity is keyed by one of these rather than by pointer so that query
// results can be compared and hashed cheaply.
package ids

import (
	"encoding/gob"
	"fmt"
	"sync"
)

func init() {
	// FileId/SymbolId/DefId are each, at one point or another, the
	// dynamic type of a query's Input or Value (both declared `any` in
	// internal/query's persisted form), so gob needs them registered
	// here rather than wherever they happen to first get boxed.
	gob.Register(FileId(0))
	gob.Register(SymbolId(0))
	gob.Register(DefId{})
	gob.Register(PrintId{})
}

// FileId is the interned identity of a source file path, exactly as the
// path was given (internal/source does not make it absolute).
type FileId uint32

// SymbolId is the interned identity of an identifier string.
type SymbolId uint32

// DefId identifies a top-level def or import binding: the file that
// declares it and the name it binds.
type DefId struct {
	File FileId
	Name SymbolId
}

func (d DefId) String() string {
	return fmt.Sprintf("DefId(%d,%d)", d.File, d.Name)
}

// PrintId identifies one `print` item: the file it appears in and its
// position among that file's Print items in source order. Print items
// bind no name (spec.md §3), so they need a positional key rather than
// a DefId to be individually type-checked and memoized.
type PrintId struct {
	File  FileId
	Index int
}

func (p PrintId) String() string {
	return fmt.Sprintf("PrintId(%d,%d)", p.File, p.Index)
}

// Interner assigns dense, stable ids to strings. A single Interner is
// shared by the whole compiler and guarded by one mutex held only during
// insert/lookup, matching the teacher's convention of a single lock per
// shared table rather than one lock per entry.
type Interner struct {
	mu      sync.Mutex
	strToID map[string]uint32
	idToStr []string
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{strToID: make(map[string]uint32)}
}

// Intern returns the dense id for s, allocating a new one if s has not
// been seen before.
func (in *Interner) Intern(s string) uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()

	if id, ok := in.strToID[s]; ok {
		return id
	}

	id := uint32(len(in.idToStr))
	in.idToStr = append(in.idToStr, s)
	in.strToID[s] = id
	return id
}

// Lookup returns the id for s without interning it, reporting whether s
// was already known.
func (in *Interner) Lookup(s string) (uint32, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	id, ok := in.strToID[s]
	return id, ok
}

// Resolve returns the string that was interned as id.
func (in *Interner) Resolve(id uint32) string {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.idToStr[id]
}

// Len returns the number of distinct strings interned so far. Used when
// persisting the interner table.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	return len(in.idToStr)
}

// Snapshot returns a copy of the interned strings in id order, suitable
// for serialization.
func (in *Interner) Snapshot() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]string, len(in.idToStr))
	copy(out, in.idToStr)
	return out
}

// Restore rebuilds the interner's tables from a previously-saved
// snapshot, preserving id assignments across process restarts.
func (in *Interner) Restore(strs []string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.idToStr = append([]string(nil), strs...)
	in.strToID = make(map[string]uint32, len(strs))
	for i, s := range strs {
		in.strToID[s] = uint32(i)
	}
}

// SourceReader is the capability an input query needs from the Source
// Store, expressed as an interface here (rather than importing
// internal/source) so that the lowest-level id package stays free of a
// dependency on the mutable-state package above it.
type SourceReader interface {
	Read(FileId) ([]byte, uint64, error)
}

// DB bundles everything a query body recovers from the engine's
// ambient context (query.Engine.Context) to do its work: the interner
// tables, for turning ids back into names/paths, and the Source Store,
// for the one query that actually touches disk.
type DB struct {
	Tables *Tables
	Source SourceReader
}

// Tables bundles the two interners the compiler needs: one for file
// paths and one for identifier text. DefId node identity is derived from
// these, never allocated separately, so that the same def always maps to
// the same DefId across runs as long as the cache tables are reloaded.
type Tables struct {
	Files   *Interner
	Symbols *Interner
}

// NewTables creates a fresh, empty pair of interners.
func NewTables() *Tables {
	return &Tables{Files: NewInterner(), Symbols: NewInterner()}
}

// FileID interns a path and returns its FileId.
func (t *Tables) FileID(path string) FileId {
	return FileId(t.Files.Intern(path))
}

// FilePath resolves a FileId back to the path it was interned from.
func (t *Tables) FilePath(id FileId) string {
	return t.Files.Resolve(uint32(id))
}

// SymbolID interns an identifier and returns its SymbolId.
func (t *Tables) SymbolID(name string) SymbolId {
	return SymbolId(t.Symbols.Intern(name))
}

// SymbolName resolves a SymbolId back to its identifier text.
func (t *Tables) SymbolName(id SymbolId) string {
	return t.Symbols.Resolve(uint32(id))
}
