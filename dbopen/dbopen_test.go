package dbopen

import (
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemoryAppliesPragmas(t *testing.T) {
	// WHAT: In-memory open succeeds and foreign_keys pragma is active.
	// WHY: Every store in the module assumes FK enforcement is on.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma query: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}
}

func TestWithSchema(t *testing.T) {
	// WHAT: Inline schema executes during Open.
	// WHY: Mains bootstrap their tables through this option.
	db := OpenMemory(t, WithSchema(`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert into bootstrapped table: %v", err)
	}
}

func TestWithoutForeignKeys(t *testing.T) {
	db := OpenMemory(t, WithoutForeignKeys())
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma query: %v", err)
	}
	if fk != 0 {
		t.Errorf("foreign_keys: got %d, want 0", fk)
	}
}
