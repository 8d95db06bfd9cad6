// Package query implements the incremental, concurrent, fault-tolerant
// query engine described in spec.md §4.1 and §5: memoization, dependency
// tracking, change-version invalidation with early cutoff, cycle
// detection, and persistence. Every compiler pass above this package
// (lexing, import resolution, name resolution, type inference) is
// written as a pure function of its input registered here as a Def;
// nothing outside this package is allowed to hold mutable state other
// than the Source Store (spec.md §9 "Dependency-tracked queries vs.
// global state").
package query

import "fmt"

// Revision is the engine's monotonically increasing generation counter.
// Every derived entry records the revision at which it was last
// confirmed valid (VerifiedAt) and the revision at which its output last
// actually changed (ChangedAt) — the pair the invalidation algorithm in
// spec.md §4.1 is built around.
type Revision uint64

// erasedDef is the type-erased form of a Def, used internally so the
// engine can store every query kind in one map without reflection. It is
// built once by NewDef and never mutated afterward, so a pointer to it
// is safe to use as a map key.
type erasedDef struct {
	name     string
	isInput  bool
	execute  func(cx *Cx, input any) (any, error)
	equal    func(a, b any) bool
	describe func(input any) string
}

// registry maps a query's stable name back to its erasedDef so that a
// persisted cache — which can only record query names, not Go pointers,
// across process restarts — can be rehydrated. Registration happens once
// per Def at package-init time via NewDef, matching the teacher's own
// pattern of registering token kinds and AST tags in package-level
// tables rather than discovering them at runtime.
var registry = map[string]*erasedDef{}

// Def is a single registered query kind: a pure function from K to V,
// plus the metadata the engine needs to cache, verify, and trace it.
type Def[K comparable, V any] struct {
	erased *erasedDef
}

// NewDef registers a new query kind. name must be globally unique and
// stable across process restarts (it is the on-disk cache key).
// execute is the query's body; it receives a *Cx used to call other
// queries (which records dependency edges) and must be a pure function
// of key given those dependencies. equal is used for early cutoff:
// if a recomputed output equals the previous one, dependents are not
// considered changed. describe renders the trace-line description for
// spec.md §6's `ThreadId(NN): ... - <query description>` output.
func NewDef[K comparable, V any](
	name string,
	execute func(cx *Cx, key K) (V, error),
	equal func(a, b V) bool,
	describe func(key K) string,
) *Def[K, V] {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("query: duplicate query name %q", name))
	}

	d := &Def[K, V]{}
	d.erased = &erasedDef{
		name: name,
		execute: func(cx *Cx, input any) (any, error) {
			return execute(cx, input.(K))
		},
		equal: func(a, b any) bool {
			return equal(a.(V), b.(V))
		},
		describe: func(input any) string {
			return describe(input.(K))
		},
	}
	registry[name] = d.erased
	return d
}

// NewInputDef registers an input query: a leaf with no dependencies
// whose value is allowed to change between revisions because it reads
// the one piece of real mutable state the compiler has, the Source
// Store (spec.md §4.2). Unlike an intermediate query, an input's body is
// re-run every revision rather than skipped when cached — it is the
// thing that decides whether anything changed at all.
func NewInputDef[K comparable, V any](
	name string,
	execute func(cx *Cx, key K) (V, error),
	equal func(a, b V) bool,
	describe func(key K) string,
) *Def[K, V] {
	d := NewDef(name, execute, equal, describe)
	d.erased.isInput = true
	return d
}
