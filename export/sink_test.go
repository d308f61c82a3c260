package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/guardians/db"
	"go.vocdoni.io/guardians/db/metadb"
	"go.vocdoni.io/guardians/types"
)

func TestDirSink(t *testing.T) {
	c := qt.New(t)
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewDirSink(dir, false)
	c.Assert(err, qt.IsNil)

	path, err := sink.Save([]byte(`{"a":1}`), "manifest.json")
	c.Assert(err, qt.IsNil)
	c.Assert(path, qt.Equals, filepath.Join(dir, "manifest.json"))

	path, err = sink.Save([]byte(`{"a":2}`), "manifest.json")
	c.Assert(err, qt.IsNil)
	content, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(content), qt.Equals, `{"a":2}`)

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)

	path, err = sink.Save([]byte("x"), "../../escape.json")
	c.Assert(err, qt.IsNil)
	c.Assert(path, qt.Equals, filepath.Join(dir, "escape.json"))

	_, err = NewDirSink("", false)
	c.Assert(err, qt.IsNotNil)
}

func TestDirSinkGzip(t *testing.T) {
	c := qt.New(t)
	sink, err := NewDirSink(t.TempDir(), true)
	c.Assert(err, qt.IsNil)

	res, err := newTestComposer(sink).ExportGuardian(testGuardian())
	c.Assert(err, qt.IsNil)
	c.Assert(filepath.Base(res.SavedAs), qt.Equals, res.Name+GzipExt)

	content, err := ReadFile(res.SavedAs)
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.DeepEquals, res.Content)
}

func TestMultiSink(t *testing.T) {
	c := qt.New(t)
	a, b := &MemorySink{}, &MemorySink{}
	name, err := MultiSink{a, b}.Save([]byte("x"), "n.json")
	c.Assert(err, qt.IsNil)
	c.Assert(name, qt.Equals, "n.json")
	c.Assert(a.Len(), qt.Equals, 1)
	c.Assert(b.Len(), qt.Equals, 1)

	failing := &MemorySink{Err: errors.New("boom")}
	_, err = MultiSink{a, failing, b}.Save([]byte("y"), "m.json")
	c.Assert(err, qt.ErrorMatches, "boom")
	c.Assert(a.Len(), qt.Equals, 2)
	c.Assert(b.Len(), qt.Equals, 2)

	_, err = MultiSink{}.Save([]byte("z"), "z.json")
	c.Assert(err, qt.IsNotNil)
}

func TestArchiveSink(t *testing.T) {
	c := qt.New(t)
	archive, err := OpenArchive(t.TempDir())
	c.Assert(err, qt.IsNil)
	defer archive.Close()

	g := testGuardian()
	e1 := newTestComposer(archive)
	e10 := NewComposer("e10", archive)

	r1, err := e1.ExportGuardian(g)
	c.Assert(err, qt.IsNil)
	r2, err := e1.ExportAll([]types.Guardian{g})
	c.Assert(err, qt.IsNil)
	_, err = e10.ExportGuardian(g)
	c.Assert(err, qt.IsNil)

	entries, err := archive.List("e1")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
	c.Assert(entries[0].Name, qt.Equals, r2.Name)
	c.Assert(entries[1].Name, qt.Equals, r1.Name)
	c.Assert(entries[0].Saved.IsZero(), qt.IsFalse)

	entries, err = archive.List("e10")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)

	entries, err = archive.List("unknown")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 0)

	content, err := archive.Get(r1.Name)
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.DeepEquals, r1.Content)

	_, err = archive.Get("missing.json")
	c.Assert(errors.Is(err, db.ErrKeyNotFound), qt.IsTrue)

	_, err = archive.Save([]byte("not json"), "x.json")
	c.Assert(err, qt.IsNotNil)
}

func TestArchiveSinkReplaces(t *testing.T) {
	c := qt.New(t)
	archive := NewArchiveSink(metadb.NewTest(t))
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	archive.now = func() time.Time { return first }

	name, err := archive.Save([]byte(`{"electionId":"e1","v":1}`), "m.json")
	c.Assert(err, qt.IsNil)
	c.Assert(name, qt.Equals, "m.json")

	archive.now = func() time.Time { return first.Add(time.Hour) }
	_, err = archive.Save([]byte(`{"electionId":"e1","v":2}`), "m.json")
	c.Assert(err, qt.IsNil)

	entries, err := archive.List("e1")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.DeepEquals, []ArchiveEntry{
		{Name: "m.json", ElectionID: "e1", Saved: first.Add(time.Hour)},
	})
	content, err := archive.Get("m.json")
	c.Assert(err, qt.IsNil)
	c.Assert(string(content), qt.Equals, `{"electionId":"e1","v":2}`)

	_, err = archive.Save([]byte(`{}`), "a/b.json")
	c.Assert(err, qt.ErrorMatches, `invalid manifest name "a/b.json"`)
}

func TestArchiveSinkMovesElection(t *testing.T) {
	c := qt.New(t)
	archive := NewArchiveSink(metadb.NewTest(t))

	_, err := archive.Save([]byte(`{"electionId":"e1"}`), "m.json")
	c.Assert(err, qt.IsNil)
	_, err = archive.Save([]byte(`{"electionId":"e2"}`), "m.json")
	c.Assert(err, qt.IsNil)

	entries, err := archive.List("e1")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 0)
	entries, err = archive.List("e2")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].Name, qt.Equals, "m.json")
}

func TestArchiveSinkRemove(t *testing.T) {
	c := qt.New(t)
	archive := NewArchiveSink(metadb.NewTest(t))

	_, err := archive.Save([]byte(`{"electionId":"e1"}`), "a.json")
	c.Assert(err, qt.IsNil)
	_, err = archive.Save([]byte(`{"electionId":"e1"}`), "b.json")
	c.Assert(err, qt.IsNil)

	c.Assert(archive.Remove("a.json"), qt.IsNil)
	c.Assert(archive.Compact(), qt.IsNil)

	_, err = archive.Get("a.json")
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	entries, err := archive.List("e1")
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].Name, qt.Equals, "b.json")

	err = archive.Remove("a.json")
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	c.Assert(err, qt.ErrorMatches, `manifest "a.json": key not found`)
}
