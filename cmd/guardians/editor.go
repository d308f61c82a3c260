package main

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// openInEditor opens path with $EDITOR, or vi when unset, and waits for the
// editor to exit.
func openInEditor(path string) error {
	cmd, err := editorCommand(os.Getenv("EDITOR"), path)
	if err != nil {
		return err
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

// editorCommand builds the command for editor, which may carry its own
// arguments, e.g. "code --wait".
func editorCommand(editor, path string) (*exec.Cmd, error) {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"vi"}
	}
	bin, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, errors.New("no editor found, set $EDITOR")
	}
	return exec.Command(bin, append(fields[1:], path)...), nil
}
