package main

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEditorCommand(t *testing.T) {
	c := qt.New(t)
	cmd, err := editorCommand("sh -e", "m.json")
	c.Assert(err, qt.IsNil)
	c.Assert(filepath.Base(cmd.Path), qt.Equals, "sh")
	c.Assert(cmd.Args[1:], qt.DeepEquals, []string{"-e", "m.json"})

	_, err = editorCommand("no-such-editor-guardians", "m.json")
	c.Assert(err, qt.ErrorMatches, `no editor found, set \$EDITOR`)
}
