// Package config loads the optional per-project `exc.toml` (SPEC_FULL.md
// §1.3). Grounded on the teacher's `depm/load_mod.go` (a module manifest
// that defaults cleanly when absent) and the option-validation style of
// `cmd/args.go`. Absence of the file is not an error: every field has a
// default that reproduces spec.md §6's argument-less CLI contract.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/jfecher/exc/internal/report"
)

// Config is the fully-defaulted set of options the driver runs with.
type Config struct {
	Root     string
	Cache    string
	Trace    bool
	LogLevel int
}

// Default reproduces spec.md §6's contract exactly: compile "input.ex"
// from the working directory, cache at ".incremental-cache", trace
// lines off, normal (verbose-on-error) logging.
func Default() Config {
	return Config{
		Root:     "input.ex",
		Cache:    ".incremental-cache",
		Trace:    false,
		LogLevel: report.LogLevelVerbose,
	}
}

// raw is the TOML document shape; every field is a pointer so an absent
// key can be told apart from an explicit zero value.
type raw struct {
	Root     *string `toml:"root"`
	Cache    *string `toml:"cache"`
	Trace    *bool   `toml:"trace"`
	LogLevel *string `toml:"loglevel"`
}

// Load reads exc.toml from the working directory and overlays it onto
// Default(). A missing file is not an error and yields Default()
// unchanged; a malformed file, or one with an unrecognized loglevel
// value, is — matching the teacher's load_mod.go rejecting a manifest it
// cannot parse rather than silently falling back.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var r raw
	if err := toml.Unmarshal(data, &r); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if r.Root != nil {
		cfg.Root = *r.Root
	}
	if r.Cache != nil {
		cfg.Cache = *r.Cache
	}
	if r.Trace != nil {
		cfg.Trace = *r.Trace
	}
	if r.LogLevel != nil {
		level, err := parseLogLevel(*r.LogLevel)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

func parseLogLevel(s string) (int, error) {
	switch s {
	case "silent":
		return report.LogLevelSilent, nil
	case "error":
		return report.LogLevelError, nil
	case "warn":
		return report.LogLevelWarn, nil
	case "verbose":
		return report.LogLevelVerbose, nil
	default:
		return 0, fmt.Errorf("unrecognized loglevel %q (want silent|error|warn|verbose)", s)
	}
}
