// Package types implements the Hindley–Milner-style type checker
// (spec.md §4.6): one `type_of(DefId) → Scheme` query per top-level def,
// classical Algorithm-W unification with an occurs check, and an
// absorbing Error type. Grounded on the teacher's `types/solver.go`,
// `types/unify.go`, `types/typevar.go` (a Solver owning type-variable
// nodes and substitutions), but drastically simplified: the teacher
// solves overloaded operators and generic structs, neither of which
// exist in Ex.
package types

import (
	"encoding/gob"
	"fmt"

	"github.com/jfecher/exc/internal/ast"
	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/parser"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
	"github.com/jfecher/exc/internal/resolve"
)

func init() {
	gob.Register(Result{})
	gob.Register(Scheme{})
	gob.Register(PrintResult{})

	gob.Register(Int{})
	gob.Register(Arrow{})
	gob.Register(Var{})
	gob.Register(Error{})
}

// Type is one of Int, Arrow(from, to), Var(id), or Error (spec.md §3).
type Type interface {
	typeMarker()
}

type Int struct{}

func (Int) typeMarker() {}

type Arrow struct{ From, To Type }

func (Arrow) typeMarker() {}

// Var is an as-yet-unsolved type variable, identified by an id unique
// within a single type_of invocation (ids are never compared across
// defs; every def's inference starts its own Solver at id 0).
type Var struct{ ID int }

func (Var) typeMarker() {}

// Error is the absorbing type sentinel: it unifies with anything,
// silently, and never itself causes a diagnostic (spec.md §3 invariant
// "Type::Error unifies with every Type without producing a further
// diagnostic").
type Error struct{}

func (Error) typeMarker() {}

// Scheme is a type generalized over a set of free variables, ∀vars. τ
// (spec.md §3).
type Scheme struct {
	Vars []int
	Type Type
}

func equalType(a, b Type) bool {
	switch av := a.(type) {
	case Int:
		_, ok := b.(Int)
		return ok
	case Arrow:
		bv, ok := b.(Arrow)
		return ok && equalType(av.From, bv.From) && equalType(av.To, bv.To)
	case Var:
		bv, ok := b.(Var)
		return ok && av.ID == bv.ID
	case Error:
		_, ok := b.(Error)
		return ok
	default:
		return false
	}
}

func equalScheme(a, b Scheme) bool {
	if len(a.Vars) != len(b.Vars) {
		return false
	}
	for i := range a.Vars {
		if a.Vars[i] != b.Vars[i] {
			return false
		}
	}
	return equalType(a.Type, b.Type)
}

// Render produces a human-readable rendering of a type for diagnostic
// messages, e.g. "Int", "Int -> Int", "?0", "Error".
func Render(t Type) string {
	switch v := t.(type) {
	case Int:
		return "Int"
	case Arrow:
		from := Render(v.From)
		if _, ok := v.From.(Arrow); ok {
			from = "(" + from + ")"
		}
		return from + " -> " + Render(v.To)
	case Var:
		return fmt.Sprintf("?%d", v.ID)
	case Error:
		return "Error"
	default:
		return "?"
	}
}

// Result is the output of TypeOfDef.
type Result struct {
	Scheme      Scheme
	Diagnostics []diag.Diagnostic
}

func equalDiags(a, b []diag.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalResult(a, b Result) bool {
	return equalScheme(a.Scheme, b.Scheme) && equalDiags(a.Diagnostics, b.Diagnostics)
}

// TypeOfDef is `type_of(DefId) → Scheme` (spec.md §4.6). Self-recursion
// (a def whose body, directly or transitively, refers to itself before
// any other def breaks the chain) is detected for free by the query
// engine's own cycle detection: type_of re-entering type_of with the
// same DefId surfaces a *query.CycleError here, which is treated exactly
// like the `InProgress` re-entry spec.md §4.6 describes — diagnosed and
// resolved as Error, without any extra state machine needing to be
// modeled explicitly.
var TypeOfDef = query.NewDef(
	"type_of",
	func(cx *query.Cx, def ids.DefId) (Result, error) {
		resolved, err := query.Get(cx, resolve.ResolveDefDef, def)
		if err != nil {
			return Result{}, err
		}

		module, err := query.Get(cx, parser.ParseDef, def.File)
		if err != nil {
			return Result{}, err
		}

		var annot ast.TypeExpr
		var defSpan report.TextSpan
		for _, d := range module.Defs() {
			if d.Name == def.Name {
				annot = d.TypeAnnot
				defSpan = d.Span
				break
			}
		}

		s := newSolver()
		bodyType := s.infer(cx, resolved.Body, nil)

		var scheme Scheme
		if annot != nil {
			annotType := fromTypeExpr(annot)
			s.unify(bodyType, annotType, defSpan)
			scheme = Scheme{Type: s.deepResolve(annotType)}
		} else {
			scheme = generalize(s, bodyType)
		}

		diags := append(append([]diag.Diagnostic(nil), resolved.Diagnostics...), s.diags...)
		return Result{Scheme: scheme, Diagnostics: diags}, nil
	},
	equalResult,
	func(def ids.DefId) string {
		return fmt.Sprintf("type_of(%s)", def)
	},
)

// PrintResult is the output of TypeOfPrintDef: no type is reported back
// (a print item binds no name for anything else to reference), only
// whatever diagnostics its expression produced.
type PrintResult struct {
	Diagnostics []diag.Diagnostic
}

func equalPrintResult(a, b PrintResult) bool {
	return equalDiags(a.Diagnostics, b.Diagnostics)
}

// TypeOfPrintDef is `type_of_print(PrintId) → ()` (spec.md §4.6 "print e
// requires e : Int"): infers the print expression's type exactly like a
// def body, then unifies it against Int so printing anything else is a
// TypeMismatch.
var TypeOfPrintDef = query.NewDef(
	"type_of_print",
	func(cx *query.Cx, id ids.PrintId) (PrintResult, error) {
		resolved, err := query.Get(cx, resolve.ResolvePrintDef, id)
		if err != nil {
			return PrintResult{}, err
		}

		module, err := query.Get(cx, parser.ParseDef, id.File)
		if err != nil {
			return PrintResult{}, err
		}

		prints := module.Prints()
		var span report.TextSpan
		if id.Index >= 0 && id.Index < len(prints) {
			span = prints[id.Index].Span
		}

		s := newSolver()
		bodyType := s.infer(cx, resolved.Body, nil)
		s.unify(bodyType, Int{}, span)

		diags := append(append([]diag.Diagnostic(nil), resolved.Diagnostics...), s.diags...)
		return PrintResult{Diagnostics: diags}, nil
	},
	equalPrintResult,
	func(id ids.PrintId) string {
		return fmt.Sprintf("type_of_print(%s)", id)
	},
)

func fromTypeExpr(t ast.TypeExpr) Type {
	switch v := t.(type) {
	case ast.IntType:
		return Int{}
	case ast.ArrowType:
		return Arrow{From: fromTypeExpr(v.From), To: fromTypeExpr(v.To)}
	default:
		return Error{}
	}
}

// generalize quantifies over every free type variable in t. Ex's flat,
// non-nested top-level scope means there is no outer environment a
// variable could also appear free in, so — per the Open Question
// decision in DESIGN.md, following the reference implementation's own
// stated limitation — every variable found free in t is generalized,
// with no escape check against other, already-generalized schemes.
func generalize(s *solver, t Type) Scheme {
	resolved := s.deepResolve(t)
	seen := map[int]bool{}
	var vars []int
	collectVars(resolved, seen, &vars)
	return Scheme{Vars: vars, Type: resolved}
}

func collectVars(t Type, seen map[int]bool, vars *[]int) {
	switch v := t.(type) {
	case Var:
		if !seen[v.ID] {
			seen[v.ID] = true
			*vars = append(*vars, v.ID)
		}
	case Arrow:
		collectVars(v.From, seen, vars)
		collectVars(v.To, seen, vars)
	}
}

// solver owns the substitution built up while inferring a single def's
// body; it never outlives one TypeOfDef invocation.
type solver struct {
	subst   map[int]Type
	nextVar int
	diags   []diag.Diagnostic
}

func newSolver() *solver {
	return &solver{subst: map[int]Type{}}
}

func (s *solver) fresh() Var {
	v := Var{ID: s.nextVar}
	s.nextVar++
	return v
}

// resolveShallow follows the substitution chain one variable at a time,
// without descending into Arrow's subterms.
func (s *solver) resolveShallow(t Type) Type {
	for {
		v, ok := t.(Var)
		if !ok {
			return t
		}
		bound, ok := s.subst[v.ID]
		if !ok {
			return t
		}
		t = bound
	}
}

// deepResolve fully substitutes every bound variable, recursively, for
// producing a def's final Scheme and for rendering diagnostics.
func (s *solver) deepResolve(t Type) Type {
	t = s.resolveShallow(t)
	if a, ok := t.(Arrow); ok {
		return Arrow{From: s.deepResolve(a.From), To: s.deepResolve(a.To)}
	}
	return t
}

func (s *solver) occurs(id int, t Type) bool {
	switch v := s.resolveShallow(t).(type) {
	case Var:
		return v.ID == id
	case Arrow:
		return s.occurs(id, v.From) || s.occurs(id, v.To)
	default:
		return false
	}
}

func (s *solver) bind(v Var, t Type, span report.TextSpan) Type {
	t = s.resolveShallow(t)
	if other, ok := t.(Var); ok && other.ID == v.ID {
		return v
	}
	if s.occurs(v.ID, t) {
		s.diags = append(s.diags, diag.New(
			diag.OccursCheck, span,
			"type variable ?%d occurs within %s; treating as Error", v.ID, Render(s.deepResolve(t)),
		))
		s.subst[v.ID] = Error{}
		return Error{}
	}
	s.subst[v.ID] = t
	return t
}

func (s *solver) mismatch(a, b Type, span report.TextSpan) {
	s.diags = append(s.diags, diag.New(
		diag.TypeMismatch, span,
		"type mismatch: expected %s, found %s", Render(s.deepResolve(a)), Render(s.deepResolve(b)),
	))
}

// unify implements spec.md §4.6's rules: Int~Int ok; Arrow~Arrow
// structurally; Var(v)~t binds v (with an occurs check); Error~_ and
// _~Error succeed silently and absorb.
func (s *solver) unify(a, b Type, span report.TextSpan) Type {
	a = s.resolveShallow(a)
	b = s.resolveShallow(b)

	if _, ok := a.(Error); ok {
		return Error{}
	}
	if _, ok := b.(Error); ok {
		return Error{}
	}

	if av, ok := a.(Var); ok {
		return s.bind(av, b, span)
	}
	if bv, ok := b.(Var); ok {
		return s.bind(bv, a, span)
	}

	switch av := a.(type) {
	case Int:
		if _, ok := b.(Int); ok {
			return Int{}
		}
		s.mismatch(a, b, span)
		return Error{}
	case Arrow:
		bv, ok := b.(Arrow)
		if !ok {
			s.mismatch(a, b, span)
			return Error{}
		}
		from := s.unify(av.From, bv.From, span)
		to := s.unify(av.To, bv.To, span)
		return Arrow{From: from, To: to}
	default:
		s.mismatch(a, b, span)
		return Error{}
	}
}

// infer walks a resolved expression, inferring its type. localTypes[i]
// is the type of the lambda parameter bound at depth
// len(localTypes)-1-i, matching resolve.Var.Depth's convention.
func (s *solver) infer(cx *query.Cx, e resolve.Expr, localTypes []Type) Type {
	switch v := e.(type) {
	case resolve.IntLit:
		return Int{}

	case resolve.Var:
		switch v.Origin {
		case resolve.OriginLocal:
			return localTypes[len(localTypes)-1-v.Depth]
		case resolve.OriginDef:
			scheme, err := query.Get(cx, TypeOfDef, v.Def)
			if err != nil {
				if _, ok := err.(*query.CycleError); ok {
					s.diags = append(s.diags, diag.New(
						diag.OccursCheck, v.Span,
						"this definition is used in terms of itself without a type annotation",
					))
				}
				return Error{}
			}
			return s.instantiate(scheme)
		default:
			return Error{}
		}

	case resolve.Lambda:
		param := s.fresh()
		bodyType := s.infer(cx, v.Body, append(localTypes, Type(param)))
		return Arrow{From: param, To: bodyType}

	case resolve.App:
		funType := s.infer(cx, v.Fun, localTypes)
		argType := s.infer(cx, v.Arg, localTypes)
		resultType := s.fresh()
		s.unify(funType, Arrow{From: argType, To: resultType}, v.Span)
		return resultType

	case resolve.BinOp:
		lhsType := s.infer(cx, v.Lhs, localTypes)
		rhsType := s.infer(cx, v.Rhs, localTypes)
		s.unify(lhsType, Int{}, v.Span)
		s.unify(rhsType, Int{}, v.Span)
		return Int{}

	case resolve.ErrorExpr:
		return Error{}

	default:
		return Error{}
	}
}

// instantiate replaces every quantified variable in scheme with a fresh
// one, per spec.md §4.6 "instantiated fresh".
func (s *solver) instantiate(scheme Scheme) Type {
	if len(scheme.Vars) == 0 {
		return scheme.Type
	}

	fresh := make(map[int]Type, len(scheme.Vars))
	for _, v := range scheme.Vars {
		fresh[v] = s.fresh()
	}

	var rewrite func(t Type) Type
	rewrite = func(t Type) Type {
		switch v := t.(type) {
		case Var:
			if f, ok := fresh[v.ID]; ok {
				return f
			}
			return v
		case Arrow:
			return Arrow{From: rewrite(v.From), To: rewrite(v.To)}
		default:
			return t
		}
	}

	return rewrite(scheme.Type)
}
