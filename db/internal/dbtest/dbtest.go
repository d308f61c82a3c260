package dbtest

import (
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/guardians/db"
)

// TestWriteTx checks the basic write transaction semantics of a db.Database.
func TestWriteTx(t *testing.T, database db.Database) {
	wTx := database.WriteTx()

	_, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)

	err = wTx.Set([]byte("a"), []byte("b"))
	qt.Assert(t, err, qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	// not visible outside the transaction until committed
	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)

	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	// Discard should not give any problem
	wTx.Discard()

	v, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	wTx = database.WriteTx()
	qt.Assert(t, wTx.Delete([]byte("a")), qt.IsNil)
	qt.Assert(t, wTx.Commit(), qt.IsNil)
	_, err = database.Get([]byte("a"))
	qt.Assert(t, err, qt.Equals, db.ErrKeyNotFound)
}

// TestIterate checks that Iterate honors prefixes and strips them from keys.
func TestIterate(t *testing.T, d db.Database) {
	prefix0 := []byte("a")
	prefix0NumKeys := 20
	prefix1 := []byte("b")
	prefix1NumKeys := 30

	wTx := d.WriteTx()
	for i := 0; i < prefix0NumKeys; i++ {
		wTx.Set(append(prefix0, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i)))
	}
	for i := 0; i < prefix1NumKeys; i++ {
		wTx.Set(append(prefix1, []byte(strconv.Itoa(i))...), []byte(strconv.Itoa(i)))
	}
	err := wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	noPrefixKeysFound := 0
	err = d.Iterate(nil, func(k, v []byte) bool {
		noPrefixKeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, noPrefixKeysFound, qt.Equals, prefix0NumKeys+prefix1NumKeys)

	prefix0KeysFound := 0
	err = d.Iterate(prefix0, func(k, v []byte) bool {
		qt.Assert(t, string(k), qt.Equals, string(v))
		prefix0KeysFound++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix0KeysFound, qt.Equals, prefix0NumKeys)

	prefix1KeysFound := 0
	err = d.Iterate(prefix1, func(k, v []byte) bool {
		prefix1KeysFound++
		return prefix1KeysFound < 5
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, prefix1KeysFound, qt.Equals, 5)
}
