package query

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// FormatVersion identifies the on-disk shape of a persisted cache
// (spec.md §6: "Format is opaque but must be self-describing enough to
// detect version mismatches; on mismatch the cache is discarded."). Bump
// this whenever persistedEntry's shape or the set of registered query
// names changes incompatibly.
const FormatVersion = 1

// snapshot is the gob-serializable form of the whole engine: every
// cached entry, addressed by query name rather than by Go pointer so it
// can be rehydrated by a later process whose Defs were registered in
// the same order or a different one — registration order never matters
// here precisely because we key by name.
type snapshot struct {
	Version Revision
	Entries []persistedEntry
}

type persistedKey struct {
	DefName string
	Input   any
}

type persistedEntry struct {
	Key        persistedKey
	Value      any
	ErrMessage string
	HadErr     bool
	Deps       []persistedKey
}

// Save serializes the entire cache to a byte blob.
func (e *Engine) Save() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := snapshot{Version: e.revision}
	for raw, ent := range e.entries {
		pe := persistedEntry{
			Key:   persistedKey{DefName: raw.def.name, Input: raw.Input},
			Value: ent.value,
			Deps:  make([]persistedKey, len(ent.deps)),
		}
		if ent.err != nil {
			pe.HadErr = true
			pe.ErrMessage = ent.err.Error()
		}
		for i, dep := range ent.deps {
			pe.Deps[i] = persistedKey{DefName: dep.def.name, Input: dep.Input}
		}
		snap.Entries = append(snap.Entries, pe)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("query: failed to encode cache: %w", err)
	}
	return buf.Bytes(), nil
}

// Load replaces the engine's cache with the contents of a previously
// saved blob. Entries referring to a query name no longer registered
// (e.g. because the compiler version changed) are silently dropped —
// this is the query-engine-level half of the "self-describing enough to
// detect version mismatches" contract; the file-level half lives in
// internal/cachefile, which checks FormatVersion before calling Load at
// all.
//
// Every loaded entry's VerifiedAt and ChangedAt are both reset to zero.
// This does not throw away the incremental benefit of the cache: input
// queries (Source Store reads) always re-execute on the first
// post-reload revision regardless, comparing the freshly-read bytes
// against the persisted value: if they are equal, early cutoff carries
// that "nothing changed" fact forward to every dependent query exactly
// as it would within a single process's lifetime. If the persisted
// revision numbers were kept instead, they would be compared against a
// fresh revision counter that restarted at zero and would look
// arbitrarily "newer", forcing a full recompute on every reload.
func (e *Engine) Load(blob []byte) error {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
		return fmt.Errorf("query: failed to decode cache: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make(map[RawKey]*entry, len(snap.Entries))
	for _, pe := range snap.Entries {
		def, ok := registry[pe.Key.DefName]
		if !ok {
			continue
		}

		deps := make([]RawKey, 0, len(pe.Deps))
		for _, dk := range pe.Deps {
			depDef, ok := registry[dk.DefName]
			if !ok {
				continue
			}
			deps = append(deps, RawKey{def: depDef, Input: dk.Input})
		}

		var err error
		if pe.HadErr {
			err = fmt.Errorf("%s", pe.ErrMessage)
		}

		raw := RawKey{def: def, Input: pe.Key.Input}
		entries[raw] = &entry{
			value:      pe.Value,
			err:        err,
			deps:       deps,
			verifiedAt: 0,
			changedAt:  0,
		}
	}

	e.entries = entries
	e.revision = 0
	return nil
}
