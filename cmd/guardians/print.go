package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.vocdoni.io/guardians/artifacts"
	"go.vocdoni.io/guardians/types"
)

var (
	keysPrint   = color.New(color.FgCyan, color.Bold)
	valuesPrint = color.New(color.FgMagenta)
	infoPrint   = color.New(color.FgGreen)
	emptyPrint  = color.New(color.FgHiBlack, color.Italic)
	headerPrint = color.New(color.FgHiGreen, color.Bold, color.Underline)
	errorPrint  = color.New(color.FgHiRed)
)

func guardianTitle(g *types.Guardian) string {
	name := g.UserName
	if name == "" {
		name = string(g.ID)
	}
	return fmt.Sprintf("#%d %s <%s> (%s)", g.SequenceOrder, name, g.UserEmail, g.DecryptionStatus())
}

func printSummary(w io.Writer, s artifacts.Snapshot) {
	headerPrint.Fprintln(w, s.Header)
	for i := range s.Guardians {
		gv := &s.Guardians[i]
		available := 0
		for _, fv := range gv.Fields {
			if fv.Exportable {
				available++
			}
		}
		keysPrint.Fprint(w, guardianTitle(&gv.Guardian))
		valuesPrint.Fprintf(w, " %d/%d artifacts\n", available, len(gv.Fields))
	}
}

func printGuardian(w io.Writer, gv *artifacts.GuardianView) {
	headerPrint.Fprintln(w, guardianTitle(&gv.Guardian))
	keysPrint.Fprint(w, "id: ")
	valuesPrint.Fprintln(w, gv.Guardian.ID)
	for _, fv := range gv.Fields {
		keysPrint.Fprintf(w, "%s: ", fv.Field.Label())
		if fv.State == artifacts.FieldEmpty {
			emptyPrint.Fprintln(w, fv.Text)
			continue
		}
		valuesPrint.Fprintln(w, fv.Text)
	}
}
