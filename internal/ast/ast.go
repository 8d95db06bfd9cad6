// Package ast defines the tagged-variant AST spec.md §3 describes:
// Module, Item (Import/Def/Print/Error), Expr (IntLit/Var/Lambda/App/
// BinOp/Error), and TypeExpr (Int/Arrow/Error). There is no inheritance
// here, matching the teacher's own AST (ast/ast.go, ast/expr.go,
// ast/def.go): each variant is a small struct implementing a one-method
// interface, and passes dispatch on concrete type with a type switch.
package ast

import (
	"encoding/gob"

	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/report"
)

func init() {
	gob.Register(Module{})

	gob.Register(Import{})
	gob.Register(Def{})
	gob.Register(Print{})
	gob.Register(ErrorItem{})

	gob.Register(IntLit{})
	gob.Register(Var{})
	gob.Register(Lambda{})
	gob.Register(App{})
	gob.Register(BinOp{})
	gob.Register(ErrorExpr{})

	gob.Register(IntType{})
	gob.Register(ArrowType{})
	gob.Register(ErrorType{})
}

// Item is a top-level construct: an import, a def, a print statement, or
// a parser-recovery placeholder.
type Item interface {
	ItemSpan() report.TextSpan
}

// Import is `import name`.
type Import struct {
	Name ids.SymbolId
	Span report.TextSpan
}

func (i Import) ItemSpan() report.TextSpan { return i.Span }

// Def is `def name (: typeexpr)? = expr`.
type Def struct {
	Name      ids.SymbolId
	TypeAnnot TypeExpr // nil if unannotated
	Body      Expr
	Span      report.TextSpan
}

func (d Def) ItemSpan() report.TextSpan { return d.Span }

// Print is `print expr`. Print items do not bind names (spec.md §3
// invariant).
type Print struct {
	Expr Expr
	Span report.TextSpan
}

func (p Print) ItemSpan() report.TextSpan { return p.Span }

// ErrorItem stands in for a top-level item the parser could not make
// sense of after a recovery skip.
type ErrorItem struct {
	Span report.TextSpan
}

func (e ErrorItem) ItemSpan() report.TextSpan { return e.Span }

// Expr is an expression node.
type Expr interface {
	ExprSpan() report.TextSpan
}

// IntLit is a 64-bit integer literal.
type IntLit struct {
	Value int64
	Span  report.TextSpan
}

func (e IntLit) ExprSpan() report.TextSpan { return e.Span }

// Var is a reference to an identifier, resolved later by internal/resolve.
type Var struct {
	Name ids.SymbolId
	Span report.TextSpan
}

func (e Var) ExprSpan() report.TextSpan { return e.Span }

// Lambda is `fn x -> body` after desugaring multi-parameter lambdas
// (`fn x y -> e` becomes nested single-parameter lambdas, per spec.md
// §4.3).
type Lambda struct {
	Param ids.SymbolId
	Body  Expr
	Span  report.TextSpan
}

func (e Lambda) ExprSpan() report.TextSpan { return e.Span }

// App is function application `fun arg`, after desugaring multi-argument
// application into left-nested single-argument applications.
type App struct {
	Fun  Expr
	Arg  Expr
	Span report.TextSpan
}

func (e App) ExprSpan() report.TextSpan { return e.Span }

// BinOpKind enumerates the two binary operators Ex supports.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
)

func (k BinOpKind) String() string {
	if k == OpSub {
		return "-"
	}
	return "+"
}

// BinOp is `lhs + rhs` or `lhs - rhs`.
type BinOp struct {
	Op   BinOpKind
	Lhs  Expr
	Rhs  Expr
	Span report.TextSpan
}

func (e BinOp) ExprSpan() report.TextSpan { return e.Span }

// ErrorExpr stands in for an expression the parser could not parse.
type ErrorExpr struct {
	Span report.TextSpan
}

func (e ErrorExpr) ExprSpan() report.TextSpan { return e.Span }

// TypeExpr is a surface-syntax type annotation.
type TypeExpr interface {
	TypeSpan() report.TextSpan
}

// IntType is the `Int` type annotation.
type IntType struct {
	Span report.TextSpan
}

func (t IntType) TypeSpan() report.TextSpan { return t.Span }

// ArrowType is `from -> to`, right-associative.
type ArrowType struct {
	From TypeExpr
	To   TypeExpr
	Span report.TextSpan
}

func (t ArrowType) TypeSpan() report.TextSpan { return t.Span }

// ErrorType stands in for a type annotation the parser could not parse.
type ErrorType struct {
	Span report.TextSpan
}

func (t ErrorType) TypeSpan() report.TextSpan { return t.Span }

// Module is the result of parsing one file: its items and every
// diagnostic produced while doing so (spec.md §3).
type Module struct {
	File        ids.FileId
	Items       []Item
	Diagnostics []diag.Diagnostic
}

// Defs returns the Def items in the module, in source order.
func (m Module) Defs() []Def {
	var defs []Def
	for _, item := range m.Items {
		if d, ok := item.(Def); ok {
			defs = append(defs, d)
		}
	}
	return defs
}

// Imports returns the Import items in the module, in source order.
func (m Module) Imports() []Import {
	var imports []Import
	for _, item := range m.Items {
		if imp, ok := item.(Import); ok {
			imports = append(imports, imp)
		}
	}
	return imports
}

// Prints returns the Print items in the module, in source order.
func (m Module) Prints() []Print {
	var prints []Print
	for _, item := range m.Items {
		if p, ok := item.(Print); ok {
			prints = append(prints, p)
		}
	}
	return prints
}

// Equal reports whether two modules have identical shape (spans
// normalized to zero) and identical diagnostics (by kind and message,
// also span-insensitive). This is the whole of what parser.ParseDef
// produces, so it is the whole of what its early cutoff must compare:
// a reformat that changes no AST node and recovers from no new parse
// error should not re-trigger resolve_def/type_of (spec.md §8 invariant
// 4), but a change that keeps the recovered AST shape identical while
// changing which ParseError was reported must still count as changed,
// or resolve.ExportedDefsDef would keep serving the stale message.
func Equal(a, b Module) bool {
	if a.File != b.File {
		return false
	}
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !itemEqual(a.Items[i], b.Items[i]) {
			return false
		}
	}
	return diagnosticsEqual(a.Diagnostics, b.Diagnostics)
}

func diagnosticsEqual(a, b []diag.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Message != b[i].Message {
			return false
		}
	}
	return true
}

func itemEqual(a, b Item) bool {
	switch av := a.(type) {
	case Import:
		bv, ok := b.(Import)
		return ok && av.Name == bv.Name
	case Def:
		bv, ok := b.(Def)
		return ok && av.Name == bv.Name && typeExprEqual(av.TypeAnnot, bv.TypeAnnot) && exprEqual(av.Body, bv.Body)
	case Print:
		bv, ok := b.(Print)
		return ok && exprEqual(av.Expr, bv.Expr)
	case ErrorItem:
		_, ok := b.(ErrorItem)
		return ok
	default:
		return false
	}
}

func exprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case IntLit:
		bv, ok := b.(IntLit)
		return ok && av.Value == bv.Value
	case Var:
		bv, ok := b.(Var)
		return ok && av.Name == bv.Name
	case Lambda:
		bv, ok := b.(Lambda)
		return ok && av.Param == bv.Param && exprEqual(av.Body, bv.Body)
	case App:
		bv, ok := b.(App)
		return ok && exprEqual(av.Fun, bv.Fun) && exprEqual(av.Arg, bv.Arg)
	case BinOp:
		bv, ok := b.(BinOp)
		return ok && av.Op == bv.Op && exprEqual(av.Lhs, bv.Lhs) && exprEqual(av.Rhs, bv.Rhs)
	case ErrorExpr:
		_, ok := b.(ErrorExpr)
		return ok
	default:
		return false
	}
}

func typeExprEqual(a, b TypeExpr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case IntType:
		_, ok := b.(IntType)
		return ok
	case ArrowType:
		bv, ok := b.(ArrowType)
		return ok && typeExprEqual(av.From, bv.From) && typeExprEqual(av.To, bv.To)
	case ErrorType:
		_, ok := b.(ErrorType)
		return ok
	default:
		return false
	}
}
