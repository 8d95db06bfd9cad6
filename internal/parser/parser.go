// Package parser implements the fault-tolerant recursive-descent parser
// for Ex (spec.md §4.3). It is grounded on the teacher's hand-written
// recursive descent parser (syntax/parser.go: next/got/gotOneOf helpers,
// one Parser instance per file) but adds the recovery policy spec.md
// requires and the teacher, as a non-incremental compiler that simply
// aborts a file on its first syntax error, does not need.
package parser

import (
	"github.com/jfecher/exc/internal/ast"
	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/lexer"
	"github.com/jfecher/exc/internal/report"
)

// Parser parses a single file's token stream into a Module. All parsing
// methods assume the parser is positioned on the first token of their
// production and leave it positioned on the next token after it, the
// same convention the teacher's Parser documents for itself.
type Parser struct {
	file    ids.FileId
	tables  *ids.Tables
	lex     *lexer.Lexer
	tok     lexer.Token
	diags   []diag.Diagnostic
}

// Parse tokenizes and parses src, always returning a complete Module:
// wherever recovery occurred, an ast.ErrorItem/ast.ErrorExpr/ast.ErrorType
// stands in, and the module's Diagnostics record why (spec.md §4.3
// "always total").
func Parse(file ids.FileId, tables *ids.Tables, src []byte) ast.Module {
	p := &Parser{file: file, tables: tables, lex: lexer.New(file, src)}
	p.advance()

	var items []ast.Item
	for p.tok.Kind != lexer.TokEOF {
		items = append(items, p.parseItem())
	}

	return ast.Module{File: file, Items: items, Diagnostics: p.diags}
}

func (p *Parser) advance() {
	p.tok = p.lex.Next()
}

func (p *Parser) at(kind lexer.Kind) bool {
	return p.tok.Kind == kind
}

func (p *Parser) errorf(span report.TextSpan, format string, args ...interface{}) {
	p.diags = append(p.diags, diag.New(diag.ParseError, span, format, args...))
}

// expect consumes the current token if it matches kind, reporting a
// ParseError and returning ok=false otherwise (without consuming
// anything, so the caller's recovery logic sees the offending token).
func (p *Parser) expect(kind lexer.Kind) (lexer.Token, bool) {
	if p.tok.Kind == kind {
		tok := p.tok
		p.advance()
		return tok, true
	}

	p.errorf(p.tok.Span, "Expected '%s' but found '%s'", kind, describeFound(p.tok))
	return lexer.Token{}, false
}

func describeFound(tok lexer.Token) string {
	if tok.Kind == lexer.TokEOF {
		return "end of input"
	}
	if tok.Text != "" {
		return tok.Text
	}
	return tok.Kind.String()
}

// isItemStart reports whether tok begins a new top-level item, used
// both to decide whether to keep skipping during recovery and to detect
// end-of-file as an implicit item boundary.
func isItemStart(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.TokImport, lexer.TokDef, lexer.TokPrint, lexer.TokEOF:
		return true
	default:
		return false
	}
}

// recover skips tokens until the next one starts a top-level item at
// column 1 (or the input ends), per spec.md §4.3's recovery policy. It
// assumes the caller has already emitted the diagnostic for the fault
// that triggered recovery.
func (p *Parser) recover(errSpan report.TextSpan) ast.Item {
	for !isItemStart(p.tok) || (p.tok.Kind != lexer.TokEOF && p.tok.Span.Start.Col != 1) {
		p.advance()
	}
	return ast.ErrorItem{Span: errSpan}
}

func (p *Parser) parseItem() ast.Item {
	start := p.tok.Span

	switch p.tok.Kind {
	case lexer.TokImport:
		p.advance()
		nameTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return p.recover(start)
		}
		return ast.Import{Name: p.tables.SymbolID(nameTok.Text), Span: report.Join(start, nameTok.Span)}

	case lexer.TokDef:
		p.advance()
		nameTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return p.recover(start)
		}

		var annot ast.TypeExpr
		if p.at(lexer.TokColon) {
			p.advance()
			annot = p.parseTypeExpr()
		}

		if _, ok := p.expect(lexer.TokEquals); !ok {
			return p.recover(start)
		}

		body := p.parseExpr()
		return ast.Def{
			Name:      p.tables.SymbolID(nameTok.Text),
			TypeAnnot: annot,
			Body:      body,
			Span:      report.Join(start, body.ExprSpan()),
		}

	case lexer.TokPrint:
		p.advance()
		expr := p.parseExpr()
		return ast.Print{Expr: expr, Span: report.Join(start, expr.ExprSpan())}

	default:
		p.errorf(start, "Expected rule item but found '%s'", describeFound(p.tok))
		return p.recover(start)
	}
}

// parseTypeExpr := 'Int' | typeexpr '->' typeexpr (right-associative).
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	left := p.parseTypeAtom()

	if p.at(lexer.TokArrow) {
		p.advance()
		right := p.parseTypeExpr()
		return ast.ArrowType{From: left, To: right, Span: report.Join(left.TypeSpan(), right.TypeSpan())}
	}

	return left
}

func (p *Parser) parseTypeAtom() ast.TypeExpr {
	if p.tok.Kind == lexer.TokIdent && p.tok.Text == "Int" {
		span := p.tok.Span
		p.advance()
		return ast.IntType{Span: span}
	}

	p.errorf(p.tok.Span, "Expected type but found '%s'", describeFound(p.tok))
	span := p.tok.Span
	p.advance()
	return ast.ErrorType{Span: span}
}

// parseExpr := app (('+'|'-') app)*, the lowest-precedence level
// (spec.md §4.3: "+ and - are left-associative with equal precedence").
func (p *Parser) parseExpr() ast.Expr {
	left := p.parseApp()

	for p.at(lexer.TokPlus) || p.at(lexer.TokMinus) {
		op := ast.OpAdd
		if p.tok.Kind == lexer.TokMinus {
			op = ast.OpSub
		}
		p.advance()

		right := p.parseApp()
		left = ast.BinOp{Op: op, Lhs: left, Rhs: right, Span: report.Join(left.ExprSpan(), right.ExprSpan())}
	}

	return left
}

// parseApp := atom atom* (left-associative application).
func (p *Parser) parseApp() ast.Expr {
	fn := p.parseAtom()

	for p.startsAtom() {
		arg := p.parseAtom()
		fn = ast.App{Fun: fn, Arg: arg, Span: report.Join(fn.ExprSpan(), arg.ExprSpan())}
	}

	return fn
}

func (p *Parser) startsAtom() bool {
	switch p.tok.Kind {
	case lexer.TokInt, lexer.TokIdent, lexer.TokLParen, lexer.TokFn:
		return true
	default:
		return false
	}
}

// parseAtom := INT | ident | '(' expr ')' | 'fn' ident+ '->' expr.
func (p *Parser) parseAtom() ast.Expr {
	switch p.tok.Kind {
	case lexer.TokInt:
		tok := p.tok
		p.advance()
		return ast.IntLit{Value: tok.IVal, Span: tok.Span}

	case lexer.TokIdent:
		tok := p.tok
		p.advance()
		return ast.Var{Name: p.tables.SymbolID(tok.Text), Span: tok.Span}

	case lexer.TokLParen:
		start := p.tok.Span
		p.advance()
		inner := p.parseExpr()
		end, ok := p.expect(lexer.TokRParen)
		if !ok {
			return ast.ErrorExpr{Span: inner.ExprSpan()}
		}
		return withSpan(inner, report.Join(start, end.Span))

	case lexer.TokFn:
		return p.parseLambda()

	default:
		span := p.tok.Span
		p.errorf(span, "Expected expression but found '%s'", describeFound(p.tok))
		p.advance()
		return ast.ErrorExpr{Span: span}
	}
}

// parseLambda parses `fn x y... -> body` and desugars the parameter
// list into nested single-parameter Lambdas (spec.md §4.3).
func (p *Parser) parseLambda() ast.Expr {
	start := p.tok.Span
	p.advance()

	var params []lexer.Token
	for p.at(lexer.TokIdent) {
		params = append(params, p.tok)
		p.advance()
	}

	if len(params) == 0 {
		p.errorf(p.tok.Span, "Expected parameter name but found '%s'", describeFound(p.tok))
		return ast.ErrorExpr{Span: start}
	}

	if _, ok := p.expect(lexer.TokArrow); !ok {
		return ast.ErrorExpr{Span: start}
	}

	body := p.parseExpr()
	span := report.Join(start, body.ExprSpan())

	for i := len(params) - 1; i >= 0; i-- {
		body = ast.Lambda{Param: p.tables.SymbolID(params[i].Text), Body: body, Span: span}
	}

	return body
}

// withSpan rewraps an expression parsed inside parentheses with the
// span of the parenthesized group, so error messages and the
// parse-is-a-pure-function-of-spans invariant (spec.md §8 invariant 1)
// see the outer span rather than the inner one.
func withSpan(e ast.Expr, span report.TextSpan) ast.Expr {
	switch v := e.(type) {
	case ast.IntLit:
		v.Span = span
		return v
	case ast.Var:
		v.Span = span
		return v
	case ast.Lambda:
		v.Span = span
		return v
	case ast.App:
		v.Span = span
		return v
	case ast.BinOp:
		v.Span = span
		return v
	default:
		return ast.ErrorExpr{Span: span}
	}
}
