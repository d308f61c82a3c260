package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// GzipExt is appended to the names of compressed manifests.
const GzipExt = ".gz"

// DirSink writes every manifest as a file inside Dir. Files are written to a
// temporary name and renamed, so readers never see partial content. An
// existing file with the same name is replaced.
type DirSink struct {
	Dir string
	// Gzip compresses the content and appends GzipExt to the name.
	Gzip bool
	// Perm is the mode of the created files, 0o644 if zero.
	Perm os.FileMode
}

var _ Sink = (*DirSink)(nil)

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string, gzipped bool) (*DirSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty output directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}
	return &DirSink{Dir: dir, Gzip: gzipped}, nil
}

// Save implements Sink. The returned name is the path of the written file.
func (s *DirSink) Save(content []byte, suggestedName string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + suggestedName))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file name %q", suggestedName)
	}
	if s.Gzip {
		name += GzipExt
	}
	f, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if err := s.write(f, content, name); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.Chmod(tmp, perm); err != nil {
		os.Remove(tmp)
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func (s *DirSink) write(w io.Writer, content []byte, name string) error {
	if !s.Gzip {
		_, err := w.Write(content)
		return err
	}
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	zw.Name = name[:len(name)-len(GzipExt)]
	if _, err := zw.Write(content); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadFile returns the content of a file written by a DirSink, decompressing
// it when its name ends with GzipExt.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if filepath.Ext(path) != GzipExt {
		return io.ReadAll(f)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// File is a manifest kept by a MemorySink.
type File struct {
	Name    string
	Content []byte
}

// MemorySink keeps the saved manifests in memory, in the order they were
// saved.
type MemorySink struct {
	mu    sync.Mutex
	files []File
	// Err, when set, is returned by Save instead of storing the content.
	Err error
}

var _ Sink = (*MemorySink)(nil)

// Save implements Sink.
func (s *MemorySink) Save(content []byte, suggestedName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.files = append(s.files, File{
		Name:    suggestedName,
		Content: append([]byte(nil), content...),
	})
	return suggestedName, nil
}

// Files returns a copy of the saved manifests.
func (s *MemorySink) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]File(nil), s.files...)
}

// Len returns the number of saved manifests.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// MultiSink saves every manifest into all of its sinks. The returned name is
// the one given by the first sink. Every sink is tried, the errors are
// joined.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

// Save implements Sink.
func (m MultiSink) Save(content []byte, suggestedName string) (string, error) {
	if len(m) == 0 {
		return "", fmt.Errorf("no sinks configured")
	}
	var first string
	var errs []error
	for i, s := range m {
		name, err := s.Save(content, suggestedName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			first = name
		}
	}
	return first, errors.Join(errs...)
}
