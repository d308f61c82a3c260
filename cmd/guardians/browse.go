package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	ui "github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.vocdoni.io/guardians/artifacts"
	"go.vocdoni.io/guardians/export"
	"go.vocdoni.io/guardians/types"
)

var errQuit = errors.New("quit")

// menuItem is an entry of an interactive menu.
type menuItem struct {
	label string
	run   func() error
}

func runMenu(label string, items []menuItem) error {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.label
	}
	p := ui.Select{
		Label:    label,
		Items:    labels,
		HideHelp: true,
		Size:     12,
	}
	i, _, err := p.Run()
	if err != nil {
		return err
	}
	return items[i].run()
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [election]",
		Short: "Browse and export the guardian artifacts interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID := a.cfg.ElectionID
			if len(args) == 1 {
				electionID = args[0]
			}
			sink, err := a.sink()
			if err != nil {
				return err
			}
			b := &browser{app: a, view: a.newView(sink)}
			defer b.view.Close()
			err = b.run(cmd.Context(), electionID)
			if errors.Is(err, errQuit) || errors.Is(err, ui.ErrInterrupt) || errors.Is(err, ui.ErrEOF) {
				return nil
			}
			return err
		},
	}
}

type browser struct {
	app        *app
	view       *artifacts.View
	lastExport string
}

func (b *browser) run(ctx context.Context, electionID string) error {
	items := color.New(color.FgHiYellow, color.Bold)
	for {
		if electionID == "" {
			p := ui.Prompt{Label: "Election id"}
			id, err := p.Run()
			if err != nil {
				return err
			}
			electionID = id
			continue
		}
		b.view.SetElection(electionID)
		st, err := b.view.Wait(ctx)
		if err != nil {
			return err
		}

		menu := []menuItem{}
		label := headerPrint.Sprint(electionID)
		if st.Status == artifacts.StatusError {
			label = fmt.Sprintf("%s | %s", label, errorPrint.Sprint(st.Message))
		} else {
			s := b.view.Render()
			label = fmt.Sprintf("%s | %s", label, s.Header)
			for i := range s.Guardians {
				g := s.Guardians[i].Guardian
				menu = append(menu, menuItem{
					label: items.Sprint(guardianTitle(&g)),
					run:   func() error { return b.guardianMenu(g.ID) },
				})
			}
			menu = append(menu, menuItem{
				label: "-> export all guardians",
				run:   func() error { return b.exported(b.view.ExportAll()) },
			})
		}
		menu = append(menu,
			menuItem{label: "-> refresh", run: func() error {
				b.view.Refresh()
				return nil
			}},
			menuItem{label: "-> change election", run: func() error {
				electionID = ""
				return nil
			}},
			menuItem{label: "-> open last export", run: b.openLastExport},
			menuItem{label: "-> quit", run: func() error { return errQuit }},
		)
		if err := runMenu(label, menu); err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, ui.ErrInterrupt) || errors.Is(err, ui.ErrEOF) {
				return err
			}
			errorPrint.Println(err)
		}
	}
}

func (b *browser) guardianMenu(id types.GuardianID) error {
	for {
		s := b.view.Render()
		var gv *artifacts.GuardianView
		for i := range s.Guardians {
			if s.Guardians[i].Guardian.ID == id {
				gv = &s.Guardians[i]
			}
		}
		if gv == nil {
			return fmt.Errorf("%w: %s", artifacts.ErrGuardianNotFound, id)
		}
		printGuardian(os.Stdout, gv)

		menu := []menuItem{}
		for _, fv := range gv.Fields {
			f := fv.Field
			if fv.Toggleable {
				verb := "expand"
				if fv.State == artifacts.FieldExpanded {
					verb = "collapse"
				}
				menu = append(menu, menuItem{
					label: fmt.Sprintf("%s %s", verb, f.Label()),
					run: func() error {
						_, err := b.view.Toggle(id, f)
						return err
					},
				})
			}
			if fv.Exportable {
				menu = append(menu, menuItem{
					label: "export " + f.Label(),
					run:   func() error { return b.exported(b.view.ExportField(id, f)) },
				})
			}
		}
		back := false
		menu = append(menu,
			menuItem{
				label: "export complete guardian data",
				run:   func() error { return b.exported(b.view.ExportGuardian(id)) },
			},
			menuItem{label: "<- back", run: func() error {
				back = true
				return nil
			}},
		)
		if err := runMenu(keysPrint.Sprint(guardianTitle(&gv.Guardian)), menu); err != nil {
			if errors.Is(err, ui.ErrInterrupt) || errors.Is(err, ui.ErrEOF) {
				return err
			}
			errorPrint.Println(err)
		}
		if back {
			return nil
		}
	}
}

func (b *browser) exported(res *export.Result, err error) error {
	if err != nil {
		return err
	}
	b.lastExport = res.SavedAs
	infoPrint.Printf("saved %s\n", res.SavedAs)
	return nil
}

func (b *browser) openLastExport() error {
	if b.lastExport == "" {
		return errors.New("nothing exported yet")
	}
	if filepath.Ext(b.lastExport) == export.GzipExt {
		content, err := export.ReadFile(b.lastExport)
		if err != nil {
			return err
		}
		fmt.Println(string(content))
		return nil
	}
	return openInEditor(b.lastExport)
}
