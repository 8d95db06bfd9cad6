package report

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

// Enumeration of log levels, mirroring the teacher's LogLevel* constants
// (report/reporter.go) but kept local to this package since there is no
// global singleton compiler state here — every *Reporter instance is
// owned by the driver and threaded explicitly.
const (
	LogLevelSilent = iota
	LogLevelError
	LogLevelWarn
	LogLevelVerbose
)

// Reporter renders the driver's trace lines and final diagnostics
// listing. Its methods are safe to call from multiple goroutines: the
// query engine's workers each call Trace as they start a query, so the
// underlying writer is guarded by a mutex exactly like the teacher's
// Reporter.m.
type Reporter struct {
	mu       sync.Mutex
	logLevel int
	seq      int
}

// New creates a Reporter at the given log level.
func New(logLevel int) *Reporter {
	return &Reporter{logLevel: logLevel}
}

// Trace prints one `ThreadId(NN): <indent>- <description>` line as a
// query begins executing, per spec.md §6. NN is a monotonically
// increasing sequence number standing in for a thread id: it lets a
// reader see interleaving across workers without actually exposing OS
// thread identifiers, which Go does not make available per-goroutine.
func (r *Reporter) Trace(workerID, depth int, description string) {
	if r.logLevel < LogLevelVerbose {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	line := fmt.Sprintf("ThreadId(%d): %s- %s", workerID, indent, description)
	pterm.DefaultBasicText.Println(line)
}

// Errors prints the final `errors:` section: one line per diagnostic,
// already sorted by the caller (diag.Sort).
func (r *Reporter) Errors(lines []string) {
	if r.logLevel == LogLevelSilent {
		return
	}

	if len(lines) == 0 {
		return
	}

	fmt.Println("errors:")
	for _, line := range lines {
		fmt.Printf("  %s\n", line)
	}
}

// CompileHeader prints the pre-compilation banner the way the teacher's
// report.ReportCompileHeader does, gated on the verbose log level.
func (r *Reporter) CompileHeader(rootFile string, cached bool) {
	if r.logLevel != LogLevelVerbose {
		return
	}

	status := "cold"
	if cached {
		status = "warm"
	}

	pterm.DefaultHeader.
		WithFullWidth().
		Println(fmt.Sprintf("exc — compiling %s (%s cache)", rootFile, status))
}

// Fatal prints a fatal, process-ending error. The driver uses it for an
// internal query-engine error and for failure to write the cache; an
// unopenable root file is reported through Errors instead, and an
// unreadable cache is discarded without any message.
func (r *Reporter) Fatal(format string, args ...interface{}) {
	pterm.Error.Println(fmt.Sprintf(format, args...))
}
