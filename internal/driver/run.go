package driver

import (
	"github.com/jfecher/exc/internal/cachefile"
	"github.com/jfecher/exc/internal/config"
	"github.com/jfecher/exc/internal/diag"
	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/query"
	"github.com/jfecher/exc/internal/report"
	"github.com/jfecher/exc/internal/source"
)

// Run is the whole job of the `exc` binary (spec.md §6) once cfg has
// been loaded: load any prior cache, compile cfg.Root once, print the
// trace and the `errors:` block, persist the cache, and return a process
// exit code. It returns non-zero in three cases: the root file could not
// be opened at all, the query engine returned an internal error, or the
// cache could not be written back out at the end.
func Run(cfg config.Config) int {
	level := cfg.LogLevel
	if !cfg.Trace && level > report.LogLevelWarn {
		level = report.LogLevelWarn
	}
	reporter := report.New(level)

	tables := ids.NewTables()
	engine := query.NewEngine(reporter)
	cached := cachefile.Load(cfg.Cache, tables, engine)

	store := source.NewStore(tables)
	engine.SetContext(&ids.DB{Tables: tables, Source: store})

	root := store.FileID(cfg.Root)
	reporter.CompileHeader(cfg.Root, cached)

	if _, _, err := store.Read(root); err != nil {
		span := report.TextSpan{File: root}
		d := diag.New(diag.IOError, span, "cannot open root file: %v", err)
		reporter.Errors([]string{d.Line(tables)})
		return 1
	}

	store.MarkAllChanged()
	engine.BeginRevision()

	rep, err := Compile(engine, root)
	if err != nil {
		reporter.Fatal("internal compiler error: %v", err)
		return 1
	}

	lines := make([]string, len(rep.Diagnostics))
	for i, d := range rep.Diagnostics {
		lines[i] = d.Line(tables)
	}
	reporter.Errors(lines)

	if err := cachefile.Save(cfg.Cache, tables, engine); err != nil {
		reporter.Fatal("failed to persist cache: %v", err)
		return 1
	}

	return 0
}
