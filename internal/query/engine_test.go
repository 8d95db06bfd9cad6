package query_test

import (
	"sync"
	"testing"

	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
)

// store is a tiny stand-in for the Source Store: a single mutable int
// per key, read through an input Def exactly the way internal/source's
// ReadDef reads file bytes through the *ids.DB context.
type store struct {
	mu     sync.Mutex
	values map[int]int
}

func newStore() *store {
	return &store{values: map[int]int{}}
}

func (s *store) set(key, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *store) get(key int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

var inputDef = query.NewInputDef(
	"test.input",
	func(cx *query.Cx, key int) (int, error) {
		s := cx.Engine().Context().(*store)
		return s.get(key), nil
	},
	func(a, b int) bool { return a == b },
	func(key int) string { return "test.input" },
)

var executionCounts = map[string]int{}
var executionsMu sync.Mutex

func countExecution(name string) {
	executionsMu.Lock()
	defer executionsMu.Unlock()
	executionCounts[name]++
}

func executionCount(name string) int {
	executionsMu.Lock()
	defer executionsMu.Unlock()
	return executionCounts[name]
}

// doubleDef depends on inputDef, so it only re-executes when its
// dependency's changedAt has moved past its own verifiedAt.
var doubleDef = query.NewDef(
	"test.double",
	func(cx *query.Cx, key int) (int, error) {
		countExecution("double")
		v, err := query.Get(cx, inputDef, key)
		if err != nil {
			return 0, err
		}
		return v * 2, nil
	},
	func(a, b int) bool { return a == b },
	func(key int) string { return "test.double" },
)

// signDef depends on doubleDef but only cares about its sign, so a
// change to doubleDef's numeric value that leaves its sign the same
// must not advance signDef's own changedAt.
var signDef = query.NewDef(
	"test.sign",
	func(cx *query.Cx, key int) (string, error) {
		countExecution("sign")
		v, err := query.Get(cx, doubleDef, key)
		if err != nil {
			return "", err
		}
		switch {
		case v > 0:
			return "pos", nil
		case v < 0:
			return "neg", nil
		default:
			return "zero", nil
		}
	},
	func(a, b string) bool { return a == b },
	func(key int) string { return "test.sign" },
)

// reportDef depends only on signDef, so it is the level at which early
// cutoff actually becomes observable as "this body did not re-execute".
var reportDef = query.NewDef(
	"test.report",
	func(cx *query.Cx, key int) (string, error) {
		countExecution("report")
		s, err := query.Get(cx, signDef, key)
		if err != nil {
			return "", err
		}
		return "sign is " + s, nil
	},
	func(a, b string) bool { return a == b },
	func(key int) string { return "test.report" },
)

// selfDef calls itself with the same key, unconditionally, so every
// invocation should observe a cycle.
var selfDef = query.NewDef(
	"test.self",
	func(cx *query.Cx, key int) (int, error) {
		_, err := query.Get(cx, selfDef, key)
		return 0, err
	},
	func(a, b int) bool { return a == b },
	func(key int) string { return "test.self" },
)

func newTestEngine(s *store) *query.Engine {
	e := query.NewEngine(report.New(report.LogLevelSilent))
	e.SetContext(s)
	return e
}

func TestMemoization(t *testing.T) {
	s := newStore()
	s.set(1, 10)
	e := newTestEngine(s)
	e.BeginRevision()

	before := executionCount("double")

	cx1 := e.NewWorker()
	v1, err := query.Get(cx1, doubleDef, 1)
	if err != nil || v1 != 20 {
		t.Fatalf("Get(1) = (%d, %v), want (20, nil)", v1, err)
	}

	cx2 := e.NewWorker()
	v2, err := query.Get(cx2, doubleDef, 1)
	if err != nil || v2 != 20 {
		t.Fatalf("second Get(1) = (%d, %v), want (20, nil)", v2, err)
	}

	if got := executionCount("double") - before; got != 1 {
		t.Fatalf("doubleDef executed %d times within one revision, want 1", got)
	}
}

func TestReVerificationWithoutChange(t *testing.T) {
	s := newStore()
	s.set(2, 5)
	e := newTestEngine(s)
	e.BeginRevision()

	cx := e.NewWorker()
	if _, err := query.Get(cx, doubleDef, 2); err != nil {
		t.Fatal(err)
	}

	before := executionCount("double")
	e.BeginRevision() // nothing changed in the store

	cx2 := e.NewWorker()
	v, err := query.Get(cx2, doubleDef, 2)
	if err != nil || v != 10 {
		t.Fatalf("Get(2) after no-op revision = (%d, %v), want (10, nil)", v, err)
	}
	if got := executionCount("double") - before; got != 0 {
		t.Fatalf("doubleDef re-executed %d times across an unchanged revision, want 0 (re-verified from cache)", got)
	}
}

// TestEarlyCutoffStopsPropagation exercises spec.md §8 invariant 4's
// general shape directly on the engine: a change that propagates to an
// intermediate query's body (so that body must re-execute to find out)
// but not to its *output* must not force anything depending on that
// query to re-execute at all.
func TestEarlyCutoffStopsPropagation(t *testing.T) {
	s := newStore()
	s.set(3, 5)
	e := newTestEngine(s)
	e.BeginRevision()

	cx := e.NewWorker()
	v, err := query.Get(cx, reportDef, 3)
	if err != nil || v != "sign is pos" {
		t.Fatalf("initial report = (%q, %v), want (\"sign is pos\", nil)", v, err)
	}

	doubleBefore := executionCount("double")
	signBefore := executionCount("sign")
	reportBefore := executionCount("report")

	// 5 -> 7 changes doubleDef's value (10 -> 14) but not its sign.
	s.set(3, 7)
	e.BeginRevision()

	cx2 := e.NewWorker()
	v2, err := query.Get(cx2, reportDef, 3)
	if err != nil || v2 != "sign is pos" {
		t.Fatalf("report after sign-preserving change = (%q, %v), want (\"sign is pos\", nil)", v2, err)
	}

	if got := executionCount("double") - doubleBefore; got != 1 {
		t.Fatalf("doubleDef executed %d times after its input changed, want 1", got)
	}
	if got := executionCount("sign") - signBefore; got != 1 {
		t.Fatalf("signDef executed %d times after its dependency changed, want 1 (it must re-verify its own output)", got)
	}
	if got := executionCount("report") - reportBefore; got != 0 {
		t.Fatalf("reportDef executed %d times despite signDef's early cutoff, want 0", got)
	}
}

// TestChangePropagatesThroughSign is the mirror case: a change that
// does flip signDef's output must propagate all the way to reportDef.
func TestChangePropagatesThroughSign(t *testing.T) {
	s := newStore()
	s.set(4, 5)
	e := newTestEngine(s)
	e.BeginRevision()

	cx := e.NewWorker()
	if v, err := query.Get(cx, reportDef, 4); err != nil || v != "sign is pos" {
		t.Fatalf("initial report = (%q, %v), want (\"sign is pos\", nil)", v, err)
	}

	reportBefore := executionCount("report")

	s.set(4, -3)
	e.BeginRevision()

	cx2 := e.NewWorker()
	v2, err := query.Get(cx2, reportDef, 4)
	if err != nil || v2 != "sign is neg" {
		t.Fatalf("report after sign-flipping change = (%q, %v), want (\"sign is neg\", nil)", v2, err)
	}

	if got := executionCount("report") - reportBefore; got != 1 {
		t.Fatalf("reportDef executed %d times after a genuine output change, want 1", got)
	}
}

func TestCycleDetection(t *testing.T) {
	s := newStore()
	e := newTestEngine(s)
	e.BeginRevision()

	cx := e.NewWorker()
	_, err := query.Get(cx, selfDef, 1)
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
	if _, ok := err.(*query.CycleError); !ok {
		t.Fatalf("expected *query.CycleError, got %T: %v", err, err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	s := newStore()
	s.set(5, 7)
	e := newTestEngine(s)
	e.BeginRevision()

	cx := e.NewWorker()
	if v, err := query.Get(cx, doubleDef, 5); err != nil || v != 14 {
		t.Fatalf("Get(5) = (%d, %v), want (14, nil)", v, err)
	}

	blob, err := e.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	e2 := newTestEngine(s)
	if err := e2.Load(blob); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e2.BeginRevision()

	before := executionCount("double")
	cx2 := e2.NewWorker()
	v, err := query.Get(cx2, doubleDef, 5)
	if err != nil || v != 14 {
		t.Fatalf("Get(5) after reload = (%d, %v), want (14, nil)", v, err)
	}
	if got := executionCount("double") - before; got != 0 {
		t.Fatalf("doubleDef executed %d times for an unchanged value right after reload, want 0", got)
	}
}
