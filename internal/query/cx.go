package query

// RawKey is the type-erased identity of one cached query invocation: the
// query kind plus its input. Input must be a comparable value (an
// ids.FileId, an ids.DefId, or a small comparable struct of those) so
// that RawKey itself is comparable and usable as a map key.
type RawKey struct {
	def   *erasedDef
	Input any
}

// Name returns the query kind's registered name, used for trace lines
// and persistence.
func (k RawKey) Name() string {
	return k.def.name
}

// Cx is the context threaded through a running query body. A query
// calls other queries exclusively through Get(cx, def, key); every such
// call both detects self-re-entrant cycles (spec.md §4.1 "Cycle
// detection") and appends a dependency edge to the currently-executing
// query's dependency list (spec.md §4.1 "Dependency tracking").
//
// Cx forms a singly-linked call stack rather than a slice so that cycle
// checks only walk back as far as the current call depth, and so that
// sibling queries forced concurrently by the driver never share (and
// therefore never race on) each other's stack.
type Cx struct {
	engine   *Engine
	workerID int
	depth    int
	parent   *Cx
	key      RawKey
	deps     *[]RawKey
}

// WorkerID identifies which logical worker (goroutine lineage) this
// context's call chain is running on, for the `ThreadId(NN)` trace
// prefix in spec.md §6.
func (cx *Cx) WorkerID() int {
	return cx.workerID
}

// Engine returns the engine this context is running under, mainly so
// input queries (whose bodies need to reach the Source Store, not just
// other queries) can recover it via Context/SetContext below.
func (cx *Cx) Engine() *Engine {
	return cx.engine
}

func (cx *Cx) inStack(raw RawKey) bool {
	for c := cx; c != nil; c = c.parent {
		if c.key.def == raw.def && c.key.Input == raw.Input {
			return true
		}
	}
	return false
}

// child builds the Cx a query body runs under: one level deeper, with
// raw pushed onto the call stack, and a fresh dependency list that the
// engine will attach to raw's cache entry once the body returns.
func (cx *Cx) child(raw RawKey) *Cx {
	return &Cx{
		engine:   cx.engine,
		workerID: cx.workerID,
		depth:    cx.depth + 1,
		parent:   cx,
		key:      raw,
		deps:     new([]RawKey),
	}
}

// Get requests the value of a query, forcing its computation if
// necessary. It is the only way one query may call another.
func Get[K comparable, V any](cx *Cx, def *Def[K, V], key K) (V, error) {
	var zero V

	raw := RawKey{def: def.erased, Input: key}

	if cx.inStack(raw) {
		return zero, &CycleError{Name: def.erased.name}
	}

	if cx.deps != nil {
		*cx.deps = append(*cx.deps, raw)
	}

	value, _, err := cx.engine.resolve(cx, raw)
	if value == nil {
		return zero, err
	}
	return value.(V), err
}
