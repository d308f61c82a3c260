package metadb

import (
	"fmt"
	"os"
	"testing"

	"go.vocdoni.io/guardians/db"
	"go.vocdoni.io/guardians/db/pebbledb"
)

// New opens a database of the given type at dir.
func New(typ, dir string) (db.Database, error) {
	switch typ {
	case db.TypePebble:
		return pebbledb.New(db.Options{Path: dir})
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q", typ, db.TypePebble)
	}
}

// ForTest returns the database type used by the tests, $GUARDIANS_DB_TYPE or
// pebble.
func ForTest() (typ string) {
	if typ = os.Getenv("GUARDIANS_DB_TYPE"); typ != "" {
		return typ
	}
	return db.TypePebble
}

// NewTest opens a database in a temporary directory, closed when the test
// ends.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
