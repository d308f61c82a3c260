package pebbledb

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/guardians/db"
	"go.vocdoni.io/guardians/db/internal/dbtest"
)

func TestWriteTx(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	dbtest.TestWriteTx(t, database)
}

func TestIterate(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	dbtest.TestIterate(t, database)
}

func TestCompact(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	defer database.Close()

	wTx := database.WriteTx()
	qt.Assert(t, wTx.Set([]byte("k"), []byte("v")), qt.IsNil)
	qt.Assert(t, wTx.Commit(), qt.IsNil)
	qt.Assert(t, database.Compact(), qt.IsNil)

	v, err := database.Get([]byte("k"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("v"))
}

func TestCompactEmptyAndDeleted(t *testing.T) {
	c := qt.New(t)
	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer database.Close()

	c.Assert(database.Compact(), qt.IsNil)

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("a"), []byte("1")), qt.IsNil)
	c.Assert(wTx.Set([]byte("b"), []byte("2")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	wTx = database.WriteTx()
	c.Assert(wTx.Delete([]byte("a")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)
	c.Assert(database.Compact(), qt.IsNil)

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.Equals, db.ErrKeyNotFound)
	v, err := database.Get([]byte("b"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("2"))
}

func TestWriteTxDone(t *testing.T) {
	c := qt.New(t)
	database, err := New(db.Options{Path: t.TempDir()})
	c.Assert(err, qt.IsNil)
	defer database.Close()

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("v")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)
	wTx.Discard()
	c.Assert(wTx.Commit(), qt.ErrorMatches, "cannot commit: .*")
	c.Assert(wTx.Set([]byte("k"), []byte("w")), qt.ErrorIs, errTxDone)

	wTx = database.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("w")), qt.IsNil)
	wTx.Discard()
	wTx.Discard()
	v, err := database.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("v"))
}

func TestPrefixEnd(t *testing.T) {
	c := qt.New(t)
	c.Assert(prefixEnd([]byte("ab")), qt.DeepEquals, []byte("ac"))
	c.Assert(prefixEnd([]byte{'a', 0xff}), qt.DeepEquals, []byte("b"))
	c.Assert(prefixEnd([]byte{0xff, 0xff}), qt.IsNil)
	c.Assert(prefixEnd(nil), qt.IsNil)
}
