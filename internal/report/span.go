package report

import "github.com/jfecher/exc/internal/ids"

// TextPosition is a single line/column location in a source file.
// Lines and columns are both 1-indexed, matching the `<file>:<line>:`
// format spec.md §6 requires in the final errors listing.
type TextPosition struct {
	Line int
	Col  int
}

// TextSpan is a half-open range of positions within one file, the unit
// every AST node and diagnostic is anchored to.
type TextSpan struct {
	File  ids.FileId
	Start TextPosition
	End   TextPosition
}

// Join returns the smallest span covering both a and b. Used when
// building up a span for a parsed production from its sub-spans.
func Join(a, b TextSpan) TextSpan {
	span := a
	if less(b.Start, span.Start) {
		span.Start = b.Start
	}
	if less(b.End, span.End) == false {
		span.End = b.End
	}
	return span
}

func less(a, b TextPosition) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}
