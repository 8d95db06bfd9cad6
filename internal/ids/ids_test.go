package ids_test

import (
	"testing"

	"github.com/jfecher/exc/internal/ids"
)

func TestInternerAssignsStableDenseIds(t *testing.T) {
	in := ids.NewInterner()

	a := in.Intern("a")
	b := in.Intern("b")
	aAgain := in.Intern("a")

	if a != aAgain {
		t.Fatalf("Intern(\"a\") returned %d then %d, want the same id both times", a, aAgain)
	}
	if a == b {
		t.Fatalf("Intern(\"a\") and Intern(\"b\") both returned %d, want distinct ids", a)
	}
	if in.Resolve(a) != "a" || in.Resolve(b) != "b" {
		t.Fatalf("Resolve round-trip failed: Resolve(%d)=%q, Resolve(%d)=%q", a, in.Resolve(a), b, in.Resolve(b))
	}
	if in.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", in.Len())
	}
}

func TestInternerLookupDoesNotAllocate(t *testing.T) {
	in := ids.NewInterner()
	in.Intern("known")

	if _, ok := in.Lookup("unknown"); ok {
		t.Fatal("Lookup(\"unknown\") reported found before any Intern call")
	}
	if in.Len() != 1 {
		t.Fatalf("Lookup allocated an id: Len() = %d, want 1", in.Len())
	}

	id, ok := in.Lookup("known")
	if !ok || id != 0 {
		t.Fatalf("Lookup(\"known\") = (%d, %v), want (0, true)", id, ok)
	}
}

func TestInternerSnapshotRestoreRoundTrip(t *testing.T) {
	in := ids.NewInterner()
	in.Intern("x")
	in.Intern("y")
	in.Intern("z")

	snap := in.Snapshot()

	restored := ids.NewInterner()
	restored.Restore(snap)

	if restored.Len() != 3 {
		t.Fatalf("Len() after Restore = %d, want 3", restored.Len())
	}
	for i, s := range snap {
		id, ok := restored.Lookup(s)
		if !ok || int(id) != i {
			t.Fatalf("Lookup(%q) after Restore = (%d, %v), want (%d, true)", s, id, ok, i)
		}
	}

	// A restored interner must keep assigning new ids past the restored set.
	next := restored.Intern("w")
	if int(next) != 3 {
		t.Fatalf("Intern(\"w\") after Restore = %d, want 3", next)
	}
}

func TestTablesFileAndSymbolIDsAreIndependent(t *testing.T) {
	tables := ids.NewTables()

	file := tables.FileID("/tmp/a.ex")
	sym := tables.SymbolID("a")

	if tables.FilePath(file) != "/tmp/a.ex" {
		t.Fatalf("FilePath(%d) = %q, want \"/tmp/a.ex\"", file, tables.FilePath(file))
	}
	if tables.SymbolName(sym) != "a" {
		t.Fatalf("SymbolName(%d) = %q, want \"a\"", sym, tables.SymbolName(sym))
	}

	// Interning the same text as both a path and a symbol must not alias
	// across the two tables, since Files and Symbols are separate Interners.
	if tables.FileID("/tmp/a.ex") != file {
		t.Fatal("FileID is not idempotent for the same path")
	}
}

func TestDefIdIdentity(t *testing.T) {
	tables := ids.NewTables()
	file := tables.FileID("/tmp/a.ex")
	name := tables.SymbolID("foo")

	a := ids.DefId{File: file, Name: name}
	b := ids.DefId{File: file, Name: name}

	if a != b {
		t.Fatalf("DefId{%v} != DefId{%v}, want equal DefIds for the same file/name pair", a, b)
	}
}
