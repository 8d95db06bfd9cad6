// Package resolve implements the name resolver (spec.md §4.5):
// per-file exported/visible definition sets, and per-def variable
// resolution. Grounded on the teacher's `resolve/resolver.go` and
// `depm/symbol_table.go` (`SymbolTable` with shadowing semantics),
// simplified to Ex's flat top-level scope — one scope per file, one
// parameter scope per lambda, no nested modules or generics.
//
// The "ambiguous import" handling here follows
// `_examples/original_source/src/definition_collection/mod.rs`'s
// `visible_definitions_impl` rather than spec.md §4.5's own prose: the
// original reports the conflict eagerly, at the importing file's import
// statement, the moment a second direct import (or the file's own
// defs) would shadow an already-visible name — it does not defer to an
// `Ambiguous` sentinel resolved lazily at reference time. Scenario A's
// exact diagnostic text ("This imports 'add10_conflicting', which has
// already been defined here: import_1.ex:5") only makes sense under
// that eager model, so this is the one place this repo follows the
// original over the distilled spec's gloss.
package resolve

import (
	"encoding/gob"
	"fmt"

	"github.com/jfecher/exc/internal/ast"
	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/imports"
	"github.com/jfecher/exc/internal/parser"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
)

func init() {
	gob.Register(ExportedResult{})
	gob.Register(VisibleResult{})
	gob.Register(Result{})

	gob.Register(IntLit{})
	gob.Register(Var{})
	gob.Register(Lambda{})
	gob.Register(App{})
	gob.Register(BinOp{})
	gob.Register(ErrorExpr{})
}

// ExportedResult is the output of ExportedDefsDef.
type ExportedResult struct {
	Defs        map[ids.SymbolId]ids.DefId
	Diagnostics []diag.Diagnostic
}

func equalDefsMap(a, b map[ids.SymbolId]ids.DefId) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
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

func equalExported(a, b ExportedResult) bool {
	return equalDefsMap(a.Defs, b.Defs) && equalDiags(a.Diagnostics, b.Diagnostics)
}

// ExportedDefsDef is `exported_defs(FileId) → Map<SymbolId, DefId>`
// (spec.md §4.5): the top-level `def` names a file declares, first
// occurrence wins on a duplicate name within the same file.
var ExportedDefsDef = query.NewDef(
	"exported_defs",
	func(cx *query.Cx, file ids.FileId) (ExportedResult, error) {
		module, err := query.Get(cx, parser.ParseDef, file)
		if err != nil {
			return ExportedResult{}, err
		}

		db := cx.Engine().Context().(*ids.DB)

		defs := map[ids.SymbolId]ids.DefId{}
		firstSpan := map[ids.SymbolId]report.TextSpan{}
		diags := append([]diag.Diagnostic(nil), module.Diagnostics...)

		for _, d := range module.Defs() {
			if existing, ok := firstSpan[d.Name]; ok {
				diags = append(diags, diag.New(
					diag.DuplicateDef, d.Span,
					"'%s' is already defined here: %s:%d",
					db.Tables.SymbolName(d.Name), db.Tables.FilePath(file), existing.Start.Line,
				))
				continue
			}
			firstSpan[d.Name] = d.Span
			defs[d.Name] = ids.DefId{File: file, Name: d.Name}
		}

		return ExportedResult{Defs: defs, Diagnostics: diags}, nil
	},
	equalExported,
	func(file ids.FileId) string {
		return fmt.Sprintf("exported_defs(%d)", file)
	},
)

// VisibleResult is the output of VisibleDefsDef.
type VisibleResult struct {
	Defs        map[ids.SymbolId]ids.DefId
	Diagnostics []diag.Diagnostic
}

func equalVisible(a, b VisibleResult) bool {
	return equalDefsMap(a.Defs, b.Defs) && equalDiags(a.Diagnostics, b.Diagnostics)
}

// VisibleDefsDef is `visible_defs(FileId) → Map<SymbolId, DefId>`
// (spec.md §4.5): the union of this file's exported defs and the
// exported defs of each of its *direct* imports (imports are not
// transitive). The file's own defs are inserted first and always win;
// among imports, the earliest (in source order) to export a given name
// wins, and every later collision is reported at the import statement
// that caused it.
var VisibleDefsDef = query.NewDef(
	"visible_defs",
	func(cx *query.Cx, file ids.FileId) (VisibleResult, error) {
		own, err := query.Get(cx, ExportedDefsDef, file)
		if err != nil {
			return VisibleResult{}, err
		}

		defs := make(map[ids.SymbolId]ids.DefId, len(own.Defs))
		for k, v := range own.Defs {
			defs[k] = v
		}
		diags := append([]diag.Diagnostic(nil), own.Diagnostics...)

		fileImports, err := query.Get(cx, imports.ImportsOfDef, file)
		if err != nil {
			return VisibleResult{}, err
		}

		db := cx.Engine().Context().(*ids.DB)

		for _, edge := range fileImports.Edges {
			imported, err := query.Get(cx, ExportedDefsDef, edge.Target)
			if err != nil {
				return VisibleResult{}, err
			}

			for name, defID := range imported.Defs {
				if existing, ok := defs[name]; ok {
					path, line := defLocation(cx, db, existing)
					diags = append(diags, diag.New(
						diag.DuplicateImport, edge.Span,
						"This imports '%s', which has already been defined here: %s:%d",
						db.Tables.SymbolName(name), path, line,
					))
					continue
				}
				defs[name] = defID
			}
		}

		return VisibleResult{Defs: defs, Diagnostics: diags}, nil
	},
	equalVisible,
	func(file ids.FileId) string {
		return fmt.Sprintf("visible_defs(%d)", file)
	},
)

// defLocation resolves a DefId back to the file path and line at which
// it is actually written, by re-parsing (cheaply, from cache) the
// defining file and finding the matching Def item.
func defLocation(cx *query.Cx, db *ids.DB, def ids.DefId) (path string, line int) {
	path = db.Tables.FilePath(def.File)

	module, err := query.Get(cx, parser.ParseDef, def.File)
	if err != nil {
		return path, 0
	}
	for _, d := range module.Defs() {
		if d.Name == def.Name {
			return path, d.Span.Start.Line
		}
	}
	return path, 0
}

// Origin classifies what a resolved variable reference points to.
type Origin int

const (
	OriginDef Origin = iota
	OriginLocal
	OriginError
)

// Expr mirrors ast.Expr's shape with every Var replaced by a resolved
// reference, so the type checker never has to repeat name lookups.
type Expr interface {
	resolvedExprMarker()
}

type IntLit struct {
	Value int64
	Span  report.TextSpan
}

func (IntLit) resolvedExprMarker() {}

// Var is a resolved variable reference. For OriginDef, Def identifies
// the top-level definition it refers to. For OriginLocal, Depth counts
// the number of enclosing Lambda scopes between this reference and the
// Lambda that binds it (0 = the nearest enclosing lambda's parameter).
// For OriginError, neither field is meaningful; a diagnostic has already
// been recorded.
type Var struct {
	Origin Origin
	Def    ids.DefId
	Depth  int
	Span   report.TextSpan
}

func (Var) resolvedExprMarker() {}

type Lambda struct {
	Body Expr
	Span report.TextSpan
}

func (Lambda) resolvedExprMarker() {}

type App struct {
	Fun, Arg Expr
	Span     report.TextSpan
}

func (App) resolvedExprMarker() {}

type BinOp struct {
	Op       ast.BinOpKind
	Lhs, Rhs Expr
	Span     report.TextSpan
}

func (BinOp) resolvedExprMarker() {}

type ErrorExpr struct {
	Span report.TextSpan
}

func (ErrorExpr) resolvedExprMarker() {}

// Result is the output of ResolveDefDef.
type Result struct {
	Body        Expr
	Diagnostics []diag.Diagnostic
}

func equalResolvedExpr(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case IntLit:
		bv, ok := b.(IntLit)
		return ok && av.Value == bv.Value
	case Var:
		bv, ok := b.(Var)
		return ok && av.Origin == bv.Origin && av.Def == bv.Def && av.Depth == bv.Depth
	case Lambda:
		bv, ok := b.(Lambda)
		return ok && equalResolvedExpr(av.Body, bv.Body)
	case App:
		bv, ok := b.(App)
		return ok && equalResolvedExpr(av.Fun, bv.Fun) && equalResolvedExpr(av.Arg, bv.Arg)
	case BinOp:
		bv, ok := b.(BinOp)
		return ok && av.Op == bv.Op && equalResolvedExpr(av.Lhs, bv.Lhs) && equalResolvedExpr(av.Rhs, bv.Rhs)
	case ErrorExpr:
		_, ok := b.(ErrorExpr)
		return ok
	default:
		return false
	}
}

func equalResolved(a, b Result) bool {
	return equalResolvedExpr(a.Body, b.Body) && equalDiags(a.Diagnostics, b.Diagnostics)
}

// ResolveDefDef is `resolve_def(DefId) → ResolvedBody` (spec.md §4.5):
// walks a def's body, replacing every Var with either a local depth, a
// DefId, or an error sentinel plus a diagnostic.
var ResolveDefDef = query.NewDef(
	"resolve_def",
	func(cx *query.Cx, def ids.DefId) (Result, error) {
		module, err := query.Get(cx, parser.ParseDef, def.File)
		if err != nil {
			return Result{}, err
		}

		var body ast.Expr
		found := false
		for _, d := range module.Defs() {
			if d.Name == def.Name {
				body = d.Body
				found = true
				break
			}
		}
		if !found {
			return Result{Body: ErrorExpr{}}, nil
		}

		visible, err := query.Get(cx, VisibleDefsDef, def.File)
		if err != nil {
			return Result{}, err
		}

		db := cx.Engine().Context().(*ids.DB)

		r := &resolver{db: db, visible: visible.Defs}
		resolved := r.expr(body, nil)

		return Result{Body: resolved, Diagnostics: r.diags}, nil
	},
	equalResolved,
	func(def ids.DefId) string {
		return fmt.Sprintf("resolve_def(%s)", def)
	},
)

// ResolvePrintDef is `resolve_print(PrintId) → ResolvedBody` (spec.md
// §4.5), the same resolution ResolveDefDef does but for a `print`
// item's expression, which binds no name of its own and so cannot be
// keyed by DefId.
var ResolvePrintDef = query.NewDef(
	"resolve_print",
	func(cx *query.Cx, id ids.PrintId) (Result, error) {
		module, err := query.Get(cx, parser.ParseDef, id.File)
		if err != nil {
			return Result{}, err
		}

		prints := module.Prints()
		if id.Index < 0 || id.Index >= len(prints) {
			return Result{Body: ErrorExpr{}}, nil
		}

		visible, err := query.Get(cx, VisibleDefsDef, id.File)
		if err != nil {
			return Result{}, err
		}

		db := cx.Engine().Context().(*ids.DB)

		r := &resolver{db: db, visible: visible.Defs}
		resolved := r.expr(prints[id.Index].Expr, nil)

		return Result{Body: resolved, Diagnostics: r.diags}, nil
	},
	equalResolved,
	func(id ids.PrintId) string {
		return fmt.Sprintf("resolve_print(%s)", id)
	},
)

// resolver walks an ast.Expr, resolving each Var against a stack of
// enclosing lambda parameters (innermost first) and, failing that, the
// file's visible defs.
type resolver struct {
	db      *ids.DB
	visible map[ids.SymbolId]ids.DefId
	diags   []diag.Diagnostic
}

func (r *resolver) expr(e ast.Expr, locals []ids.SymbolId) Expr {
	switch v := e.(type) {
	case ast.IntLit:
		return IntLit{Value: v.Value, Span: v.Span}

	case ast.Var:
		// Walk outward from the innermost (most recently pushed) local
		// first, so the nearest enclosing lambda parameter shadows any
		// same-named outer one (spec.md §4.5).
		for i := len(locals) - 1; i >= 0; i-- {
			if locals[i] == v.Name {
				return Var{Origin: OriginLocal, Depth: len(locals) - 1 - i, Span: v.Span}
			}
		}
		if defID, ok := r.visible[v.Name]; ok {
			return Var{Origin: OriginDef, Def: defID, Span: v.Span}
		}
		r.diags = append(r.diags, diag.New(
			diag.UnresolvedName, v.Span,
			"'%s' is not defined, was it a typo?", r.db.Tables.SymbolName(v.Name),
		))
		return Var{Origin: OriginError, Span: v.Span}

	case ast.Lambda:
		return Lambda{Body: r.expr(v.Body, append(locals, v.Param)), Span: v.Span}

	case ast.App:
		return App{Fun: r.expr(v.Fun, locals), Arg: r.expr(v.Arg, locals), Span: v.Span}

	case ast.BinOp:
		return BinOp{Op: v.Op, Lhs: r.expr(v.Lhs, locals), Rhs: r.expr(v.Rhs, locals), Span: v.Span}

	case ast.ErrorExpr:
		return ErrorExpr{Span: v.Span}

	default:
		return ErrorExpr{}
	}
}
