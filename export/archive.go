package export

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.vocdoni.io/guardians/db"
	"go.vocdoni.io/guardians/db/metadb"
	"go.vocdoni.io/guardians/db/prefixeddb"
	"go.vocdoni.io/guardians/log"
)

// Archive key prefixes
var (
	archiveContentPrefix  = []byte("m/")
	archiveElectionPrefix = []byte("e/")
)

// ArchiveEntry describes a manifest stored in the archive.
type ArchiveEntry struct {
	Name       string
	ElectionID string
	Saved      time.Time
}

// ArchiveSink stores the manifests in a key-value database, indexed by the
// election they belong to. Saving a manifest with an existing name replaces
// it, moving its index entry when the election differs.
type ArchiveSink struct {
	db       db.Database
	contents *prefixeddb.PrefixedDatabase
	index    *prefixeddb.PrefixedDatabase
	now      func() time.Time
}

var _ Sink = (*ArchiveSink)(nil)

// NewArchiveSink returns an archive backed by database.
func NewArchiveSink(database db.Database) *ArchiveSink {
	return &ArchiveSink{
		db:       database,
		contents: prefixeddb.NewPrefixedDatabase(database, archiveContentPrefix),
		index:    prefixeddb.NewPrefixedDatabase(database, archiveElectionPrefix),
		now:      time.Now,
	}
}

// OpenArchive opens (or creates) a pebble archive at dir.
func OpenArchive(dir string) (*ArchiveSink, error) {
	database, err := metadb.New(db.TypePebble, dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	return NewArchiveSink(database), nil
}

// Close closes the underlying database.
func (a *ArchiveSink) Close() error {
	return a.db.Close()
}

// Save implements Sink. The election is read from the electionId key of the
// manifest.
func (a *ArchiveSink) Save(content []byte, suggestedName string) (string, error) {
	if suggestedName == "" || strings.Contains(suggestedName, "/") {
		return "", fmt.Errorf("invalid manifest name %q", suggestedName)
	}
	electionID, err := manifestElection(content)
	if err != nil {
		return "", fmt.Errorf("cannot archive %s: %w", suggestedName, err)
	}
	saved := make([]byte, 8)
	binary.BigEndian.PutUint64(saved, uint64(a.now().UnixNano()))

	wTx := a.db.WriteTx()
	defer wTx.Discard()
	contents := prefixeddb.NewPrefixedWriteTx(wTx, archiveContentPrefix)
	index := prefixeddb.NewPrefixedWriteTx(wTx, archiveElectionPrefix)
	old, err := contents.Get([]byte(suggestedName))
	switch {
	case err == nil:
		if oldElection, err := manifestElection(old); err == nil && oldElection != electionID {
			if err := index.Delete(electionKey(oldElection, suggestedName)); err != nil {
				return "", err
			}
		}
	case !errors.Is(err, db.ErrKeyNotFound):
		return "", err
	}
	if err := contents.Set([]byte(suggestedName), content); err != nil {
		return "", err
	}
	if err := index.Set(electionKey(electionID, suggestedName), saved); err != nil {
		return "", err
	}
	if err := wTx.Commit(); err != nil {
		return "", err
	}
	log.Debugw("manifest archived", "name", suggestedName, "electionID", electionID)
	return suggestedName, nil
}

// Remove deletes an archived manifest and its index entry.
func (a *ArchiveSink) Remove(name string) error {
	wTx := a.db.WriteTx()
	defer wTx.Discard()
	contents := prefixeddb.NewPrefixedWriteTx(wTx, archiveContentPrefix)
	content, err := contents.Get([]byte(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("manifest %q: %w", name, err)
		}
		return err
	}
	if err := contents.Delete([]byte(name)); err != nil {
		return err
	}
	electionID, err := manifestElection(content)
	if err != nil {
		log.Warnw("archived manifest without election", "name", name, "error", err)
	} else if err := prefixeddb.NewPrefixedWriteTx(wTx, archiveElectionPrefix).
		Delete(electionKey(electionID, name)); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	log.Debugw("manifest removed", "name", name, "electionID", electionID)
	return nil
}

// Compact reclaims the space of removed and replaced manifests.
func (a *ArchiveSink) Compact() error {
	return a.db.Compact()
}

func manifestElection(content []byte) (string, error) {
	var head struct {
		ElectionID string `json:"electionId"`
	}
	if err := json.Unmarshal(content, &head); err != nil {
		return "", err
	}
	return head.ElectionID, nil
}

// Get returns the content of an archived manifest, db.ErrKeyNotFound if there
// is none with that name.
func (a *ArchiveSink) Get(name string) ([]byte, error) {
	v, err := a.contents.Get([]byte(name))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("manifest %q: %w", name, err)
	}
	return v, err
}

// List returns the manifests archived for an election, ordered by name.
func (a *ArchiveSink) List(electionID string) ([]ArchiveEntry, error) {
	entries := []ArchiveEntry{}
	err := a.index.Iterate(electionKey(electionID, ""), func(k, v []byte) bool {
		e := ArchiveEntry{Name: string(k), ElectionID: electionID}
		if len(v) == 8 {
			e.Saved = time.Unix(0, int64(binary.BigEndian.Uint64(v))).UTC()
		}
		entries = append(entries, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// electionKey is <len(electionID)><electionID><name>, the length prefix keeps
// an election id from matching the keys of a longer one.
func electionKey(electionID, name string) []byte {
	k := binary.AppendUvarint(nil, uint64(len(electionID)))
	k = append(k, electionID...)
	return append(k, name...)
}
