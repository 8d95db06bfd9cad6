// Package driver implements compile(root) → Report (spec.md §4.7) and
// the CLI plumbing around it (spec.md §6). Grounded on the teacher's own
// top-level compile sequencing (bootstrap's build pipeline driving
// parse → resolve → typecheck in stages) generalized to this repo's
// demand-driven queries, plus the "force the frontier concurrently"
// shape of other_examples/vovakirdan-surge__parallel_diagnose.go.
package driver

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/imports"
	"github.com/jfecher/exc/internal/parser"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/resolve"
	"github.com/jfecher/exc/internal/types"
)

// Report is compile(root)'s result: every reachable file, in dependency
// order, and every diagnostic collected while compiling them, sorted and
// deduplicated (spec.md §4.7 step 4).
type Report struct {
	Files       []ids.FileId
	Diagnostics []diag.Diagnostic
}

// Compile runs the four steps of spec.md §4.7 against engine, whose
// context must already be a *ids.DB (set via Engine.SetContext) backed
// by a live Source Store.
func Compile(engine *query.Engine, root ids.FileId) (Report, error) {
	if _, err := discoverFiles(engine, root); err != nil {
		return Report{}, err
	}

	transCx := engine.NewWorker()
	trans, err := query.Get(transCx, imports.TransitiveFilesDef, root)
	if err != nil {
		return Report{}, err
	}

	var mu sync.Mutex
	diags := append([]diag.Diagnostic(nil), trans.Diagnostics...)
	var defIDs []ids.DefId
	var printIDs []ids.PrintId

	g := new(errgroup.Group)
	for _, file := range trans.Files {
		file := file
		g.Go(func() error {
			exportedCx := engine.NewWorker()
			exported, err := query.Get(exportedCx, resolve.ExportedDefsDef, file)
			if err != nil {
				return err
			}

			visibleCx := engine.NewWorker()
			visible, err := query.Get(visibleCx, resolve.VisibleDefsDef, file)
			if err != nil {
				return err
			}

			parseCx := engine.NewWorker()
			module, err := query.Get(parseCx, parser.ParseDef, file)
			if err != nil {
				return err
			}

			mu.Lock()
			diags = append(diags, exported.Diagnostics...)
			diags = append(diags, visible.Diagnostics...)
			for _, def := range exported.Defs {
				defIDs = append(defIDs, def)
			}
			for i := range module.Prints() {
				printIDs = append(printIDs, ids.PrintId{File: file, Index: i})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	g2 := new(errgroup.Group)
	for _, def := range defIDs {
		def := def
		g2.Go(func() error {
			typeCx := engine.NewWorker()
			result, err := query.Get(typeCx, types.TypeOfDef, def)
			if err != nil {
				return err
			}

			mu.Lock()
			diags = append(diags, result.Diagnostics...)
			mu.Unlock()
			return nil
		})
	}
	for _, id := range printIDs {
		id := id
		g2.Go(func() error {
			printCx := engine.NewWorker()
			result, err := query.Get(printCx, types.TypeOfPrintDef, id)
			if err != nil {
				return err
			}

			mu.Lock()
			diags = append(diags, result.Diagnostics...)
			mu.Unlock()
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return Report{}, err
	}

	db := engine.Context().(*ids.DB)
	diag.Sort(diags, db.Tables)
	diags = diag.Dedup(diags)

	return Report{Files: trans.Files, Diagnostics: diags}, nil
}
