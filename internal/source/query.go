package source

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/query"
)

func init() {
	gob.Register(Text{})
}

// ReadDef is the one query.Def that touches real mutable state. Its
// body recovers the Store via the engine's context handle (set once by
// the driver with Engine.SetContext) rather than closing over a
// particular *Store at registration time, since registration happens at
// package-init and must work for every Store the process ever builds —
// including a fresh one per test.
var ReadDef = query.NewInputDef(
	"source.read",
	func(cx *query.Cx, file ids.FileId) (Text, error) {
		db := cx.Engine().Context().(*ids.DB)
		bytes, version, err := db.Source.Read(file)

		text := Text{Bytes: bytes, Version: version}
		if err != nil {
			text.ReadError = err.Error()
		}
		return text, nil
	},
	func(a, b Text) bool {
		// Version alone is not enough to compare across process
		// restarts: the Store is never persisted, so a fresh process's
		// first read of any file starts back at version 1 regardless of
		// whether its bytes actually changed since the cache was
		// written. Comparing the bytes themselves is what makes early
		// cutoff correct across a persist/reload cycle (spec.md §8
		// round-trip property), not just within one process's revisions.
		return a.ReadError == b.ReadError && bytes.Equal(a.Bytes, b.Bytes)
	},
	func(file ids.FileId) string {
		return fmt.Sprintf("source.read(%d)", file)
	},
)
