package parser

import (
	"fmt"

	"github.com/jfecher/exc/internal/ast"
	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
	"github.com/jfecher/exc/internal/source"
)

// ParseDef is `parse(FileId) → Module` (spec.md §4.3). It depends on
// source.ReadDef, so a file whose bytes are unchanged (even if its mtime
// was touched) is recognized as unchanged before a single token is
// lexed, and a file whose bytes genuinely changed re-lexes and
// re-parses but nothing downstream re-runs unless the resulting Module
// differs in shape (internal/ast.Equal), per spec.md §8 invariant 4.
var ParseDef = query.NewDef(
	"parse",
	func(cx *query.Cx, file ids.FileId) (ast.Module, error) {
		text, err := query.Get(cx, source.ReadDef, file)
		if err != nil {
			return ast.Module{}, err
		}

		db := cx.Engine().Context().(*ids.DB)

		if text.ReadError != "" {
			zeroSpan := report.TextSpan{File: file}
			return ast.Module{
				File: file,
				Diagnostics: []diag.Diagnostic{
					diag.New(diag.IOError, zeroSpan, "%s", text.ReadError),
				},
			}, nil
		}

		return Parse(file, db.Tables, text.Bytes), nil
	},
	ast.Equal,
	func(file ids.FileId) string {
		return fmt.Sprintf("parse(%d)", file)
	},
)
