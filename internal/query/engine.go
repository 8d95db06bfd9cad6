package query

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfecher/exc/internal/report"
)

// CycleError is returned when a query re-enters itself, directly or
// transitively, with the same input (spec.md §4.1 "Cycle detection").
// Callers decide whether to surface it as a diagnostic (as
// internal/types does for self-recursive defs) or to simply propagate
// it. internal/imports never sees one: it finds import cycles itself,
// by coloring files during its own DFS.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("query cycle detected in %q", e.Name)
}

// entry is one cached query result, keyed implicitly by the RawKey that
// maps to it.
type entry struct {
	value      any
	err        error
	deps       []RawKey
	verifiedAt Revision
	changedAt  Revision
}

// Engine is the query database: the single place mutation is permitted
// in this compiler (spec.md §9). It owns the cache, the dependency
// graph, and the at-most-one-in-flight-per-key scheduling guarantee.
// Multiple goroutines may call Get concurrently through independent Cx
// chains; the Engine's own bookkeeping is guarded by one mutex, matching
// spec.md §5's description of fine-grained locking shared by the
// interners, the cache, and the source store.
type Engine struct {
	mu       sync.Mutex
	revision Revision
	entries  map[RawKey]*entry
	inflight map[RawKey]chan struct{}

	reporter  *report.Reporter
	workerSeq int32
	execCount int64

	ctx any
}

// NewEngine creates an empty query engine that reports trace lines
// through reporter.
func NewEngine(reporter *report.Reporter) *Engine {
	return &Engine{
		entries:  make(map[RawKey]*entry),
		inflight: make(map[RawKey]chan struct{}),
		reporter: reporter,
	}
}

// BeginRevision starts a new generation. The driver calls this once
// before each top-level compile(root) request; every input and
// intermediate query re-verifies (and, for inputs, re-reads the Source
// Store) against this new revision, with early cutoff suppressing
// re-execution of anything downstream of an unchanged value.
func (e *Engine) BeginRevision() Revision {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revision++
	return e.revision
}

// NewWorker allocates a fresh root Cx representing one logical worker
// (one call-chain "thread" for trace purposes). The driver calls this
// once per concurrently-forced top-level query; nested Get calls within
// that chain share the same worker id and increase in depth.
func (e *Engine) NewWorker() *Cx {
	id := int(atomic.AddInt32(&e.workerSeq, 1))
	return &Cx{engine: e, workerID: id, depth: 0}
}

// resolve is the heart of the engine: it returns the current value,
// changedAt revision, and error for raw, computing or re-verifying it
// as necessary, and guarantees at most one concurrent execution per key.
func (e *Engine) resolve(cx *Cx, raw RawKey) (any, Revision, error) {
	for {
		e.mu.Lock()
		ent, exists := e.entries[raw]
		if exists && ent.verifiedAt == e.revision {
			value, changedAt, err := ent.value, ent.changedAt, ent.err
			e.mu.Unlock()
			return value, changedAt, err
		}

		if waitCh, busy := e.inflight[raw]; busy {
			e.mu.Unlock()
			<-waitCh
			continue
		}

		waitCh := make(chan struct{})
		e.inflight[raw] = waitCh
		e.mu.Unlock()

		value, changedAt, err := e.computeOrVerify(cx, raw, ent, exists)

		e.mu.Lock()
		delete(e.inflight, raw)
		close(waitCh)
		e.mu.Unlock()

		return value, changedAt, err
	}
}

// computeOrVerify implements spec.md §4.1's invalidation algorithm: walk
// dependencies depth-first; reuse the cached value if every dependency's
// changedAt is no later than our own last verification, otherwise
// re-execute the body and apply early cutoff.
func (e *Engine) computeOrVerify(cx *Cx, raw RawKey, ent *entry, exists bool) (any, Revision, error) {
	childCx := cx.child(raw)

	needsRecompute := !exists || raw.def.isInput
	if exists && !raw.def.isInput {
		for _, dep := range ent.deps {
			_, depChangedAt, verr := e.resolve(childCx, dep)
			if verr != nil {
				// A cycle surfaced while replaying an old dependency
				// edge (e.g. the import graph changed shape). Abort
				// verification and force a fresh execution, per
				// spec.md §5 "Cancellation".
				needsRecompute = true
				break
			}
			if depChangedAt > ent.verifiedAt {
				needsRecompute = true
				break
			}
		}
	}

	if !needsRecompute {
		e.mu.Lock()
		ent.verifiedAt = e.revision
		value, changedAt, err := ent.value, ent.changedAt, ent.err
		e.mu.Unlock()
		return value, changedAt, err
	}

	e.reporter.Trace(cx.workerID, cx.depth, raw.def.describe(raw.Input))
	if !raw.def.isInput {
		atomic.AddInt64(&e.execCount, 1)
	}
	newValue, err := raw.def.execute(childCx, raw.Input)

	e.mu.Lock()
	defer e.mu.Unlock()

	changedAt := e.revision
	if exists && ent.err == nil && err == nil && raw.def.equal(ent.value, newValue) {
		// Early cutoff: the output is identical, so dependents do not
		// need to be told anything changed even though this query's
		// body did re-run.
		changedAt = ent.changedAt
	}

	e.entries[raw] = &entry{
		value:      newValue,
		err:        err,
		deps:       *childCx.deps,
		verifiedAt: e.revision,
		changedAt:  changedAt,
	}

	return newValue, changedAt, err
}

// SetContext attaches the compiler's ambient state (the Source Store) to
// the engine, so that input query bodies registered in other packages —
// which only receive a *Cx, never a reference chosen at registration
// time — can recover it without every input Def needing its own
// bespoke global variable. This is the salsa "database" handle, made
// untyped here because internal/query must not import internal/source.
func (e *Engine) SetContext(ctx any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = ctx
}

// Context returns whatever was last passed to SetContext.
func (e *Engine) Context() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// Revision reports the engine's current generation, mainly for tests
// asserting early cutoff (spec.md §8 invariant 4 / Scenario E).
func (e *Engine) Revision() Revision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Stats reports how many entries are currently cached, for diagnostics
// and the round-trip test in spec.md §8 ("zero query bodies execute").
func (e *Engine) Stats() (cached int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// ExecutionCount returns how many query bodies have actually executed
// (as opposed to being served from cache or reused via early cutoff)
// since the engine was created or since ResetExecutionCount was called.
func (e *Engine) ExecutionCount() int64 {
	return atomic.LoadInt64(&e.execCount)
}

// ResetExecutionCount zeroes the execution counter, letting a test mark
// a baseline before making a small change and asserting exactly which
// queries re-ran.
func (e *Engine) ResetExecutionCount() {
	atomic.StoreInt64(&e.execCount, 0)
}
