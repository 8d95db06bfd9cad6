package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jfecher/exc/internal/config"
	"github.com/jfecher/exc/internal/report"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Root != "input.ex" || cfg.Cache != ".incremental-cache" || cfg.Trace {
		t.Fatalf("Default() = %+v, want spec's argument-less CLI contract", cfg)
	}
	if cfg.LogLevel != report.LogLevelVerbose {
		t.Fatalf("Default().LogLevel = %d, want LogLevelVerbose", cfg.LogLevel)
	}
}

func TestLoadMissingFileYieldsDefault(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load of a missing file returned an error: %v", err)
	}
	if cfg != config.Default() {
		t.Fatalf("Load(missing) = %+v, want Default()", cfg)
	}
}

func TestLoadOverlaysProvidedFields(t *testing.T) {
	path := writeFile(t, `
root = "main.ex"
trace = true
loglevel = "silent"
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "main.ex" {
		t.Fatalf("Root = %q, want %q", cfg.Root, "main.ex")
	}
	if !cfg.Trace {
		t.Fatal("Trace = false, want true")
	}
	if cfg.LogLevel != report.LogLevelSilent {
		t.Fatalf("LogLevel = %d, want LogLevelSilent", cfg.LogLevel)
	}
	// cache was not specified, so it keeps the default.
	if cfg.Cache != config.Default().Cache {
		t.Fatalf("Cache = %q, want the default %q", cfg.Cache, config.Default().Cache)
	}
}

func TestLoadMalformedTOMLIsAnError(t *testing.T) {
	path := writeFile(t, "this is not [ valid toml")

	if _, err := config.Load(path); err == nil {
		t.Fatal("Load of malformed TOML returned nil error, want an error")
	}
}

func TestLoadUnrecognizedLogLevelIsAnError(t *testing.T) {
	path := writeFile(t, `loglevel = "deafening"`)

	if _, err := config.Load(path); err == nil {
		t.Fatal("Load with an unrecognized loglevel returned nil error, want an error")
	}
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exc.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
