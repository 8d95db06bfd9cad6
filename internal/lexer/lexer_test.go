package lexer_test

import (
	"testing"

	"github.com/jfecher/exc/internal/lexer"
)

func tokenize(t *testing.T, src string) []lexer.Token {
	t.Helper()
	l := lexer.New(1, []byte(src))
	var toks []lexer.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == lexer.TokEOF {
			return toks
		}
	}
}

func kinds(toks []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func assertKinds(t *testing.T, toks []lexer.Token, want ...lexer.Kind) {
	t.Helper()
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d tokens %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := tokenize(t, "import def print fn other_name")
	assertKinds(t, toks,
		lexer.TokImport, lexer.TokDef, lexer.TokPrint, lexer.TokFn, lexer.TokIdent, lexer.TokEOF)

	if toks[4].Text != "other_name" {
		t.Fatalf("ident text = %q, want %q", toks[4].Text, "other_name")
	}
}

func TestIntegerLiteral(t *testing.T) {
	toks := tokenize(t, "12345")
	assertKinds(t, toks, lexer.TokInt, lexer.TokEOF)
	if toks[0].IVal != 12345 {
		t.Fatalf("IVal = %d, want 12345", toks[0].IVal)
	}
}

func TestPunctuation(t *testing.T) {
	toks := tokenize(t, "-> : = + - ( )")
	assertKinds(t, toks,
		lexer.TokArrow, lexer.TokColon, lexer.TokEquals, lexer.TokPlus,
		lexer.TokMinus, lexer.TokLParen, lexer.TokRParen, lexer.TokEOF)
}

func TestMinusIsNotGreedilyArrow(t *testing.T) {
	toks := tokenize(t, "- -")
	assertKinds(t, toks, lexer.TokMinus, lexer.TokMinus, lexer.TokEOF)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := tokenize(t, "def # this is a comment\nfoo")
	assertKinds(t, toks, lexer.TokDef, lexer.TokIdent, lexer.TokEOF)
}

func TestUnknownCharacterBecomesTokError(t *testing.T) {
	toks := tokenize(t, "@")
	assertKinds(t, toks, lexer.TokError, lexer.TokEOF)
	if toks[0].Text != "@" {
		t.Fatalf("error token text = %q, want %q", toks[0].Text, "@")
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := tokenize(t, "def a\ndef b")
	// second "def" starts on line 2, column 1.
	var secondDef lexer.Token
	count := 0
	for _, tok := range toks {
		if tok.Kind == lexer.TokDef {
			count++
			if count == 2 {
				secondDef = tok
			}
		}
	}
	if count != 2 {
		t.Fatalf("found %d TokDef tokens, want 2", count)
	}
	if secondDef.Span.Start.Line != 2 || secondDef.Span.Start.Col != 1 {
		t.Fatalf("second def starts at %+v, want line 2 col 1", secondDef.Span.Start)
	}
}

func TestAtColumn1(t *testing.T) {
	l := lexer.New(1, []byte("def\n  fn"))
	if !l.AtColumn1() {
		t.Fatal("AtColumn1() = false at the very start of input, want true")
	}
	l.Next() // consumes "def"
	l.Next() // consumes "fn", skipping leading spaces on line 2
	// After consuming through "fn" we've moved off column 1.
	if l.AtColumn1() {
		t.Fatal("AtColumn1() = true after consuming mid-line tokens, want false")
	}
}

func TestKindStringMatchesDiagnosticVocabulary(t *testing.T) {
	if got := lexer.TokEquals.String(); got != "=" {
		t.Fatalf("TokEquals.String() = %q, want %q", got, "=")
	}
	if got := lexer.TokIdent.String(); got != "identifier" {
		t.Fatalf("TokIdent.String() = %q, want %q", got, "identifier")
	}
}
