package resolve_test

import (
	"fmt"
	"testing"

	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
	"github.com/jfecher/exc/internal/resolve"
)

type fakeSource map[ids.FileId][]byte

func (f fakeSource) Read(file ids.FileId) ([]byte, uint64, error) {
	contents, ok := f[file]
	if !ok {
		return nil, 0, fmt.Errorf("no such file")
	}
	return contents, 1, nil
}

func newFixture(t *testing.T, files map[string]string) (*query.Engine, *ids.Tables, map[string]ids.FileId) {
	t.Helper()

	tables := ids.NewTables()
	src := fakeSource{}
	fileIDs := map[string]ids.FileId{}
	for name, contents := range files {
		path := "/proj/" + name + ".ex"
		fid := tables.FileID(path)
		fileIDs[name] = fid
		src[fid] = []byte(contents)
	}

	e := query.NewEngine(report.New(report.LogLevelSilent))
	e.SetContext(&ids.DB{Tables: tables, Source: src})
	e.BeginRevision()

	return e, tables, fileIDs
}

func TestExportedDefsFirstOccurrenceWins(t *testing.T) {
	e, tables, files := newFixture(t, map[string]string{
		"main": "def x = 1\ndef x = 2",
	})

	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.ExportedDefsDef, files["main"])
	if err != nil {
		t.Fatal(err)
	}

	xID := tables.SymbolID("x")
	def, ok := result.Defs[xID]
	if !ok || def.Name != xID {
		t.Fatalf("Defs[x] = %+v, ok=%v, want the first def", def, ok)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != diag.DuplicateDef {
		t.Fatalf("Diagnostics = %+v, want a single DuplicateDef", result.Diagnostics)
	}
}

func TestVisibleDefsOwnFileWinsOverImport(t *testing.T) {
	e, tables, files := newFixture(t, map[string]string{
		"main":   "import helper\ndef shared = 1",
		"helper": "def shared = 2",
	})

	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.VisibleDefsDef, files["main"])
	if err != nil {
		t.Fatal(err)
	}

	sharedID := tables.SymbolID("shared")
	def := result.Defs[sharedID]
	if def.File != files["main"] {
		t.Fatalf("Defs[shared] = %+v, want it to resolve to main's own def", def)
	}
}

// TestVisibleDefsReportsDuplicateImport exercises the exact diagnostic
// text an ambiguous import produces: reported eagerly at the importing
// file's import statement, not deferred to reference time.
func TestVisibleDefsReportsDuplicateImport(t *testing.T) {
	e, _, files := newFixture(t, map[string]string{
		"main":    "import import_1\nimport import_2",
		"import_1": "def add10_conflicting = 1",
		"import_2": "def add10_conflicting = 2",
	})

	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.VisibleDefsDef, files["main"])
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %+v, want exactly one DuplicateImport", result.Diagnostics)
	}
	if result.Diagnostics[0].Kind != diag.DuplicateImport {
		t.Fatalf("diagnostic kind = %v, want DuplicateImport", result.Diagnostics[0].Kind)
	}
	want := "This imports 'add10_conflicting', which has already been defined here: /proj/import_1.ex:1"
	if result.Diagnostics[0].Message != want {
		t.Fatalf("diagnostic message = %q, want %q", result.Diagnostics[0].Message, want)
	}
}

func TestResolveDefLocalShadowsOuterDef(t *testing.T) {
	e, tables, files := newFixture(t, map[string]string{
		"main": "def x = 1\ndef f = fn x -> x",
	})

	fID := tables.SymbolID("f")
	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.ResolveDefDef, ids.DefId{File: files["main"], Name: fID})
	if err != nil {
		t.Fatal(err)
	}

	lambda, ok := result.Body.(resolve.Lambda)
	if !ok {
		t.Fatalf("body = %+v, want Lambda", result.Body)
	}
	v, ok := lambda.Body.(resolve.Var)
	if !ok || v.Origin != resolve.OriginLocal || v.Depth != 0 {
		t.Fatalf("lambda.Body = %+v, want a local Var at depth 0 (the parameter, not the outer def)", lambda.Body)
	}
}

func TestResolveDefReportsUnresolvedName(t *testing.T) {
	e, tables, files := newFixture(t, map[string]string{
		"main": "def f = never_defined",
	})

	fID := tables.SymbolID("f")
	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.ResolveDefDef, ids.DefId{File: files["main"], Name: fID})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := result.Body.(resolve.Var); !ok {
		t.Fatalf("body = %+v, want a resolved Var in OriginError state", result.Body)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != diag.UnresolvedName {
		t.Fatalf("Diagnostics = %+v, want a single UnresolvedName", result.Diagnostics)
	}
	want := "'never_defined' is not defined, was it a typo?"
	if result.Diagnostics[0].Message != want {
		t.Fatalf("message = %q, want %q", result.Diagnostics[0].Message, want)
	}
}

func TestResolveDefDoesNotSeeTransitiveImports(t *testing.T) {
	e, tables, files := newFixture(t, map[string]string{
		"main":          "import middle\ndef f = defined_in_import_of_import",
		"middle":        "import leaf",
		"leaf":          "def defined_in_import_of_import = 1",
	})

	fID := tables.SymbolID("f")
	cx := e.NewWorker()
	result, err := query.Get(cx, resolve.ResolveDefDef, ids.DefId{File: files["main"], Name: fID})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != diag.UnresolvedName {
		t.Fatalf("Diagnostics = %+v, want a single UnresolvedName (imports are not transitive)", result.Diagnostics)
	}
	want := "'defined_in_import_of_import' is not defined, was it a typo?"
	if result.Diagnostics[0].Message != want {
		t.Fatalf("message = %q, want %q", result.Diagnostics[0].Message, want)
	}
}
