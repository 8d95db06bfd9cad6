// Package diag defines the diagnostic type every query result carries
// alongside its value (spec.md §3, §7). Diagnostics are plain data: they
// are accumulated by queries, never thrown, and the Error AST/type
// sentinels exist precisely so a pass only has to emit one diagnostic
// per genuine fault.
package diag

import (
	"fmt"
	"sort"

	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/report"
)

// Kind enumerates the diagnostic kinds from spec.md §7.
type Kind int

const (
	ParseError Kind = iota
	UnknownImport
	CyclicImport
	DuplicateImport
	DuplicateDef
	AmbiguousName
	UnresolvedName
	TypeMismatch
	OccursCheck
	IOError
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case UnknownImport:
		return "UnknownImport"
	case CyclicImport:
		return "CyclicImport"
	case DuplicateImport:
		return "DuplicateImport"
	case DuplicateDef:
		return "DuplicateDef"
	case AmbiguousName:
		return "AmbiguousName"
	case UnresolvedName:
		return "UnresolvedName"
	case TypeMismatch:
		return "TypeMismatch"
	case OccursCheck:
		return "OccursCheck"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Severity distinguishes hard errors from advisory output, the
// teacher's CompileMessage.IsError boolean generalized to an enum. Every
// diagnostic the compiler emits is SevError; internal/report does not
// filter on severity.
type Severity int

const (
	SevError Severity = iota
	SevWarning
)

// Diagnostic is a single reported fault, anchored to a span.
type Diagnostic struct {
	Span     report.TextSpan
	Severity Severity
	Kind     Kind
	Message  string
}

// New builds a Diagnostic with the given kind, span, and formatted
// message.
func New(kind Kind, span report.TextSpan, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Span:     span,
		Severity: SevError,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Line renders the diagnostic in the `<file>:<line>: <message>` format
// spec.md §6 requires, given a table to resolve the file id back to a
// path.
func (d Diagnostic) Line(tables FileNamer) string {
	return fmt.Sprintf("%s:%d: %s", tables.FilePath(d.Span.File), d.Span.Start.Line, d.Message)
}

// FileNamer is the minimal capability diag needs to render a path; it is
// satisfied by *ids.Tables.
type FileNamer interface {
	FilePath(ids.FileId) string
}

// Sort orders diagnostics by file path then by starting line/column,
// the deterministic order the driver must produce (spec.md §4.7 step 4,
// §6). File ids are assigned in whatever order the concurrent import
// walk happens to discover files in, so sorting by the raw FileId would
// make the final report's order vary run to run; sorting by the path
// FileNamer resolves it to does not.
func Sort(diags []Diagnostic, tables FileNamer) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if pa, pb := tables.FilePath(a.Span.File), tables.FilePath(b.Span.File); pa != pb {
			return pa < pb
		}
		if a.Span.Start.Line != b.Span.Start.Line {
			return a.Span.Start.Line < b.Span.Start.Line
		}
		return a.Span.Start.Col < b.Span.Start.Col
	})
}

// Dedup removes exact duplicate diagnostics (same span, kind, message)
// that can arise when the same DefId is forced from more than one path
// in the driver's fan-out.
func Dedup(diags []Diagnostic) []Diagnostic {
	seen := make(map[string]struct{}, len(diags))
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		key := fmt.Sprintf("%d:%d:%d:%d:%d:%s", d.Span.File, d.Span.Start.Line, d.Span.Start.Col, d.Kind, d.Severity, d.Message)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
