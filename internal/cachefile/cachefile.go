// Package cachefile persists the query engine's cache to a single file
// in the working directory (spec.md §6 "Filesystem": ".incremental-cache"
// by default) and reloads it at startup. It owns the outer envelope
// (format version, interner tables) around the opaque blob
// internal/query knows how to decode.
package cachefile

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/query"
)

// envelope wraps the query engine's snapshot together with the interner
// tables (file paths and symbol names) it refers to by id, and a format
// tag used to reject an incompatible cache outright rather than trying
// to partially decode it.
type envelope struct {
	Format  int
	Files   []string
	Symbols []string
	Engine  []byte
}

// Save writes the engine's cache and interner tables to path.
func Save(path string, tables *ids.Tables, engine *query.Engine) error {
	engineBlob, err := engine.Save()
	if err != nil {
		return err
	}

	env := envelope{
		Format:  query.FormatVersion,
		Files:   tables.Files.Snapshot(),
		Symbols: tables.Symbols.Snapshot(),
		Engine:  engineBlob,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("cachefile: failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cachefile: failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads path and restores tables and engine from it. If the file
// is missing, unreadable, or in a format this build does not
// understand, Load reports ok=false (never an error the caller must
// propagate): per spec.md §7, a corrupt or outdated cache is simply
// discarded in favor of a fresh, empty one, and the only fatal cache
// condition is write failure at the very end of a run, not a bad read
// at the start.
func Load(path string, tables *ids.Tables, engine *query.Engine) (ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return false
	}

	if env.Format != query.FormatVersion {
		return false
	}

	tables.Files.Restore(env.Files)
	tables.Symbols.Restore(env.Symbols)

	if err := engine.Load(env.Engine); err != nil {
		return false
	}

	return true
}
