// Package imports implements the import resolver (spec.md §4.4):
// resolving each file's `import name` items to the FileId of `name.ex`
// in the same directory, and walking the resulting graph to find the
// transitive file set reachable from a root, detecting cycles along the
// way. Grounded on the teacher's `depm/load_mod.go` (directory-relative
// file resolution) and `depm/infinite.go` (three-color DFS used there to
// detect recursive type definitions, applied here to files instead).
package imports

import (
	"encoding/gob"
	"fmt"
	"path/filepath"

	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/parser"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
	"github.com/jfecher/exc/internal/source"
)

func init() {
	gob.Register(Result{})
	gob.Register(TransitiveResult{})
}

// Edge is one resolved `import name` item: the file it resolved to and
// the span of the import statement itself, kept around so a cycle
// detected later in the traversal can still point at the edge that
// closed it rather than just the file it closed on.
type Edge struct {
	Target ids.FileId
	Span   report.TextSpan
}

// Result is the output of ImportsOfDef: the files a single file imports,
// plus any diagnostics produced while resolving them.
type Result struct {
	Edges       []Edge
	Diagnostics []diag.Diagnostic
}

// Files returns just the resolved target file ids, in source order.
func (r Result) Files() []ids.FileId {
	files := make([]ids.FileId, len(r.Edges))
	for i, e := range r.Edges {
		files[i] = e.Target
	}
	return files
}

func equalResult(a, b Result) bool {
	if len(a.Edges) != len(b.Edges) || len(a.Diagnostics) != len(b.Diagnostics) {
		return false
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			return false
		}
	}
	for i := range a.Diagnostics {
		if a.Diagnostics[i] != b.Diagnostics[i] {
			return false
		}
	}
	return true
}

// ImportsOfDef is `imports_of(FileId) → [FileId]` (spec.md §4.4).
var ImportsOfDef = query.NewDef(
	"imports_of",
	func(cx *query.Cx, file ids.FileId) (Result, error) {
		module, err := query.Get(cx, parser.ParseDef, file)
		if err != nil {
			return Result{}, err
		}

		db := cx.Engine().Context().(*ids.DB)
		dir := filepath.Dir(db.Tables.FilePath(file))

		var result Result
		for _, imp := range module.Imports() {
			name := db.Tables.SymbolName(imp.Name)
			path := filepath.Join(dir, name+".ex")
			target := db.Tables.FileID(path)

			text, err := query.Get(cx, source.ReadDef, target)
			if err != nil {
				return Result{}, err
			}
			if text.ReadError != "" {
				result.Diagnostics = append(result.Diagnostics, diag.New(
					diag.UnknownImport, imp.Span,
					"cannot find imported file '%s.ex'", name,
				))
				continue
			}

			result.Edges = append(result.Edges, Edge{Target: target, Span: imp.Span})
		}

		return result, nil
	},
	equalResult,
	func(file ids.FileId) string {
		return fmt.Sprintf("imports_of(%d)", file)
	},
)

// TransitiveResult is the output of TransitiveFilesDef: every file
// reachable from the root, in dependency-before-dependent (topological)
// order, plus every UnknownImport/CyclicImport diagnostic surfaced
// while walking the graph.
type TransitiveResult struct {
	Files       []ids.FileId
	Diagnostics []diag.Diagnostic
}

func equalTransitive(a, b TransitiveResult) bool {
	if len(a.Files) != len(b.Files) || len(a.Diagnostics) != len(b.Diagnostics) {
		return false
	}
	for i := range a.Files {
		if a.Files[i] != b.Files[i] {
			return false
		}
	}
	for i := range a.Diagnostics {
		if a.Diagnostics[i] != b.Diagnostics[i] {
			return false
		}
	}
	return true
}

type color int

const (
	white color = iota
	gray
	black
)

// TransitiveFilesDef is `transitive_files(root) → [FileId]` (spec.md
// §4.4): a DFS over imports_of starting at root, coloring nodes to
// detect cycles. A back edge (target currently gray) becomes a
// CyclicImport diagnostic on that edge and is dropped rather than
// followed. It is dropped from this traversal only: resolve's
// visible_defs reads imports_of directly, so the file holding the back
// edge still sees the names its target exports. The result is
// the postorder of the DFS, so every file appears after each file it
// imports — a topological order of the (acyclic part of the) import
// graph, per spec.md §8 invariant 2.
var TransitiveFilesDef = query.NewDef(
	"transitive_files",
	func(cx *query.Cx, root ids.FileId) (TransitiveResult, error) {
		colors := map[ids.FileId]color{}
		var order []ids.FileId
		var diags []diag.Diagnostic

		db := cx.Engine().Context().(*ids.DB)

		var visit func(file ids.FileId) error
		visit = func(file ids.FileId) error {
			colors[file] = gray

			result, err := query.Get(cx, ImportsOfDef, file)
			if err != nil {
				return err
			}
			diags = append(diags, result.Diagnostics...)

			for _, edge := range result.Edges {
				switch colors[edge.Target] {
				case white:
					if err := visit(edge.Target); err != nil {
						return err
					}
				case gray:
					diags = append(diags, diag.New(
						diag.CyclicImport, edge.Span,
						"importing '%s' here creates a cycle",
						db.Tables.FilePath(edge.Target),
					))
				case black:
					// already fully visited via a different path; fine.
				}
			}

			colors[file] = black
			order = append(order, file)
			return nil
		}

		if err := visit(root); err != nil {
			return TransitiveResult{}, err
		}

		return TransitiveResult{Files: order, Diagnostics: diags}, nil
	},
	equalTransitive,
	func(root ids.FileId) string {
		return fmt.Sprintf("transitive_files(%d)", root)
	},
)
