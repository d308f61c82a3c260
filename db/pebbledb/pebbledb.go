// Package pebbledb is the pebble backend of db.Database used by the
// manifest archive.
package pebbledb

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"go.vocdoni.io/guardians/db"
)

var (
	_ db.Database = (*PebbleDB)(nil)
	_ db.WriteTx  = (*WriteTx)(nil)
)

// PebbleDB is a db.Database stored in a pebble directory.
type PebbleDB struct {
	store *pebble.DB
}

// New opens the pebble store at opts.Path, creating the directory if needed.
func New(opts db.Options) (*PebbleDB, error) {
	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, err
	}
	store, err := pebble.Open(opts.Path, &pebble.Options{
		Levels: []pebble.LevelOptions{{Compression: pebble.SnappyCompression}},
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open pebble store %s: %w", opts.Path, err)
	}
	return &PebbleDB{store: store}, nil
}

// Close flushes and closes the store.
func (p *PebbleDB) Close() error {
	return p.store.Close()
}

// Get returns a copy of the value stored under key.
func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	return lookup(p.store, key)
}

// Iterate walks the keys starting with prefix in order, handing them to fn
// without the prefix.
func (p *PebbleDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	it, err := p.store.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	for ok := it.First(); ok; ok = it.Next() {
		if !fn(it.Key()[len(prefix):], it.Value()) {
			break
		}
	}
	return errors.Join(it.Error(), it.Close())
}

// WriteTx starts an indexed batch, so reads inside it see its own writes.
func (p *PebbleDB) WriteTx() db.WriteTx {
	return &WriteTx{batch: p.store.NewIndexedBatch()}
}

// Compact rewrites the whole key range, dropping deleted entries.
func (p *PebbleDB) Compact() error {
	it, err := p.store.NewIter(nil)
	if err != nil {
		return err
	}
	var start, end []byte
	if it.First() {
		start = append(start, it.Key()...)
	}
	if it.Last() {
		end = append(end, it.Key()...)
	}
	if err := it.Close(); err != nil {
		return err
	}
	if start == nil {
		return nil
	}
	// the end bound is exclusive
	return p.store.Compact(start, append(end, 0), true)
}

// WriteTx is a pebble batch. It can be committed once, Discard may be called
// any number of times.
type WriteTx struct {
	batch *pebble.Batch
}

// Get reads key through the batch.
func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if tx.batch == nil {
		return nil, errTxDone
	}
	return lookup(tx.batch, key)
}

// Set stores value under key.
func (tx *WriteTx) Set(key, value []byte) error {
	if tx.batch == nil {
		return errTxDone
	}
	return tx.batch.Set(key, value, nil)
}

// Delete removes key, deleting a missing key is not an error.
func (tx *WriteTx) Delete(key []byte) error {
	if tx.batch == nil {
		return errTxDone
	}
	return tx.batch.Delete(key, nil)
}

// Commit applies the batch.
func (tx *WriteTx) Commit() error {
	if tx.batch == nil {
		return fmt.Errorf("cannot commit: %w", errTxDone)
	}
	b := tx.batch
	tx.batch = nil
	return b.Commit(nil)
}

// Discard drops the batch if it was not committed.
func (tx *WriteTx) Discard() {
	if tx.batch == nil {
		// pebble pools closed batches, closing twice would race
		return
	}
	_ = tx.batch.Close()
	tx.batch = nil
}

var errTxDone = errors.New("pebble transaction already committed or discarded")

func lookup(r pebble.Reader, key []byte) ([]byte, error) {
	v, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	// v is only valid until closer is closed
	out := append([]byte(nil), v...)
	return out, closer.Close()
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, nil when there is none.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
