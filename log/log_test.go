package log

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleSeq      = []int{1, 2, 3}
	sampleDuration = time.Second

	errSample = errors.New("some error")
)

func doLogs() {
	// Some sample logs from existing code.
	Infof("fetched %d guardians for election %s", sampleInt, "e-42")
	Debugw("exporting manifest", "kind", "field", "name", "guardian_1_tally_share_election_e-42.json")
	Errorf("cannot fetch guardians: %v", errSample)
	Warnw("various types",
		"sequence", sampleSeq,
		"duration", sampleDuration,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	t.Setenv("LOG_PANIC_ON_INVALIDCHARS", "false")
	Init("debug", "stderr")
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	_ = os.Setenv("LOG_PANIC_ON_INVALIDCHARS", "true")
	Init("debug", "stderr")
	defer func() {
		recover()
		panicOnInvalidChars = false
	}()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLoggerOutput(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	logTestWriter = &buf
	Init("debug", logTestWriterName)

	doLogs()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// the first line is the construction message
	c.Assert(lines, qt.HasLen, 6)
	c.Assert(lines[1], qt.Contains, "INFO")
	c.Assert(lines[1], qt.Contains, "fetched 3 guardians for election e-42")
	c.Assert(lines[2], qt.Contains, "DEBUG")
	c.Assert(lines[2], qt.Contains, `"kind": "field"`)
	c.Assert(lines[3], qt.Contains, "ERROR")
	c.Assert(lines[3], qt.Contains, "cannot fetch guardians: some error")
	c.Assert(lines[4], qt.Contains, `"sequence": [1, 2, 3]`)
	c.Assert(lines[4], qt.Contains, `"duration": 1`)
	// caller is reported relative to the caller of the wrapper
	c.Assert(lines[5], qt.Contains, "log/log_test.go")
}

func TestLoggerLevel(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer
	logTestWriter = &buf
	Init("warn", logTestWriterName)

	Debugf("hidden %d", 1)
	Infow("hidden too")
	Warnf("visible %d", 2)

	out := buf.String()
	c.Assert(out, qt.Not(qt.Contains), "hidden")
	c.Assert(out, qt.Contains, "visible 2")
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
