// Package lexer tokenizes Ex source text. Grounded on the teacher's
// bufio-backed scanner (syntax/lexer.go): a single rune-at-a-time reader
// with explicit line/column tracking, generalized here to the much
// smaller Ex token set (spec.md §4.3).
package lexer

import (
	"bufio"
	"strings"
	"unicode"

	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/report"
)

// Kind enumerates Ex's token kinds.
type Kind int

const (
	TokEOF Kind = iota
	TokInt
	TokIdent

	TokImport
	TokDef
	TokPrint
	TokFn

	TokArrow // ->
	TokColon
	TokEquals
	TokPlus
	TokMinus
	TokLParen
	TokRParen

	TokError // a character the lexer could not make sense of
)

var keywords = map[string]Kind{
	"import": TokImport,
	"def":    TokDef,
	"print":  TokPrint,
	"fn":     TokFn,
}

// Token is a single lexical token with its source span.
type Token struct {
	Kind Kind
	Text string
	IVal int64
	Span report.TextSpan
}

// Lexer tokenizes one file's contents.
type Lexer struct {
	file      ids.FileId
	r         *bufio.Reader
	line, col int
	atCol1    bool // true if the current position is the first column of its line
}

// New creates a Lexer over src, attributing every token's span to file.
func New(file ids.FileId, src []byte) *Lexer {
	return &Lexer{
		file:   file,
		r:      bufio.NewReader(strings.NewReader(string(src))),
		line:   1,
		col:    1,
		atCol1: true,
	}
}

// AtColumn1 reports whether the lexer's current position is column 1 of
// its line — the parser's recovery policy (spec.md §4.3) resumes at the
// next token that starts a top-level item at column 1.
func (l *Lexer) AtColumn1() bool {
	return l.atCol1
}

func (l *Lexer) peek() (rune, bool) {
	r, _, err := l.r.ReadRune()
	if err != nil {
		return 0, false
	}
	l.r.UnreadRune()
	return r, true
}

func (l *Lexer) advance() (rune, bool) {
	r, _, err := l.r.ReadRune()
	if err != nil {
		return 0, false
	}
	if r == '\n' {
		l.line++
		l.col = 1
		l.atCol1 = true
	} else {
		l.col++
		l.atCol1 = false
	}
	return r, true
}

func (l *Lexer) pos() report.TextPosition {
	return report.TextPosition{Line: l.line, Col: l.col}
}

func (l *Lexer) span(start report.TextPosition) report.TextSpan {
	return report.TextSpan{File: l.file, Start: start, End: l.pos()}
}

// Next returns the next token, or a TokEOF token once the input is
// exhausted. The lexer never returns an error: unrecognized characters
// become a TokError token the parser turns into a ParseError diagnostic,
// matching spec.md §4.3's "always total" contract one level down.
func (l *Lexer) Next() Token {
	for {
		c, ok := l.peek()
		if !ok {
			return Token{Kind: TokEOF, Span: l.span(l.pos())}
		}

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
			continue
		case c == '#':
			l.skipComment()
			continue
		case unicode.IsDigit(c):
			return l.lexInt()
		case isIdentStart(c):
			return l.lexIdentOrKeyword()
		default:
			return l.lexPunct()
		}
	}
}

func (l *Lexer) skipComment() {
	for {
		c, ok := l.peek()
		if !ok || c == '\n' {
			return
		}
		l.advance()
	}
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentCont(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func (l *Lexer) lexInt() Token {
	start := l.pos()
	var b strings.Builder
	for {
		c, ok := l.peek()
		if !ok || !unicode.IsDigit(c) {
			break
		}
		l.advance()
		b.WriteRune(c)
	}

	var value int64
	for _, c := range b.String() {
		value = value*10 + int64(c-'0')
	}

	return Token{Kind: TokInt, Text: b.String(), IVal: value, Span: l.span(start)}
}

func (l *Lexer) lexIdentOrKeyword() Token {
	start := l.pos()
	var b strings.Builder
	for {
		c, ok := l.peek()
		if !ok || !isIdentCont(c) {
			break
		}
		l.advance()
		b.WriteRune(c)
	}

	text := b.String()
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Text: text, Span: l.span(start)}
	}
	return Token{Kind: TokIdent, Text: text, Span: l.span(start)}
}

func (l *Lexer) lexPunct() Token {
	start := l.pos()
	c, _ := l.advance()

	switch c {
	case '-':
		if next, ok := l.peek(); ok && next == '>' {
			l.advance()
			return Token{Kind: TokArrow, Text: "->", Span: l.span(start)}
		}
		return Token{Kind: TokMinus, Text: "-", Span: l.span(start)}
	case '+':
		return Token{Kind: TokPlus, Text: "+", Span: l.span(start)}
	case ':':
		return Token{Kind: TokColon, Text: ":", Span: l.span(start)}
	case '=':
		return Token{Kind: TokEquals, Text: "=", Span: l.span(start)}
	case '(':
		return Token{Kind: TokLParen, Text: "(", Span: l.span(start)}
	case ')':
		return Token{Kind: TokRParen, Text: ")", Span: l.span(start)}
	default:
		return Token{Kind: TokError, Text: string(c), Span: l.span(start)}
	}
}

// String renders a token kind for diagnostic messages (e.g. "Expected
// '=' but found 'bar'", spec.md §8 Scenario A).
func (k Kind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokInt:
		return "integer literal"
	case TokIdent:
		return "identifier"
	case TokImport:
		return "import"
	case TokDef:
		return "def"
	case TokPrint:
		return "print"
	case TokFn:
		return "fn"
	case TokArrow:
		return "->"
	case TokColon:
		return ":"
	case TokEquals:
		return "="
	case TokPlus:
		return "+"
	case TokMinus:
		return "-"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	default:
		return "invalid token"
	}
}
