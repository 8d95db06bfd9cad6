// Command exc is the Ex compiler's entry point (spec.md §6): it takes no
// arguments, always compiles input.ex from the working directory (or
// whatever exc.toml overrides to), and exits non-zero only when exc.toml
// exists but cannot be read or parsed, when it cannot open the root file
// at all, when the query engine hits an internal error, or when it
// cannot persist its cache.
package main

import (
	"os"

	"github.com/jfecher/exc/internal/config"
	"github.com/jfecher/exc/internal/driver"
)

func main() {
	os.Exit(run())
}

// run is main's body, factored out so the testscript harness in
// main_test.go can register it as the `exc` command the test binary
// re-executes itself as.
func run() int {
	cfg, err := config.Load("exc.toml")
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	return driver.Run(cfg)
}
