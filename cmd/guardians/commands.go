package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.vocdoni.io/guardians/artifacts"
	"go.vocdoni.io/guardians/export"
	"go.vocdoni.io/guardians/types"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [election]",
		Short: "List the guardians of an election",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, _, err := a.splitElection(args, 0)
			if err != nil {
				return err
			}
			v, err := a.load(cmd.Context(), electionID, nil)
			if err != nil {
				return err
			}
			defer v.Close()
			printSummary(cmd.OutOrStdout(), v.Render())
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var expand []string
	cmd := &cobra.Command{
		Use:   "show [election] <sequence>",
		Short: "Show the artifacts of a guardian",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, rest, err := a.splitElection(args, 1)
			if err != nil {
				return err
			}
			seq, err := parseSequence(rest[0])
			if err != nil {
				return err
			}
			fields, err := parseFields(expand)
			if err != nil {
				return err
			}
			v, err := a.load(cmd.Context(), electionID, nil)
			if err != nil {
				return err
			}
			defer v.Close()
			g, err := v.Guardian(seq)
			if err != nil {
				return err
			}
			for _, f := range fields {
				if _, err := v.Toggle(g.ID, f); err != nil {
					return err
				}
			}
			gv := artifacts.RenderGuardian(g, v.Disclosure())
			printGuardian(cmd.OutOrStdout(), &gv)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&expand, "expand", nil,
		"show these fields in full (field key or label, \"all\" for every field)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export guardian artifacts as JSON manifests",
	}
	fieldCmd := &cobra.Command{
		Use:   "field [election] <sequence> <field>",
		Short: "Export a single artifact field of a guardian",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, rest, err := a.splitElection(args, 2)
			if err != nil {
				return err
			}
			seq, err := parseSequence(rest[0])
			if err != nil {
				return err
			}
			field, err := types.ParseArtifactField(rest[1])
			if err != nil {
				return err
			}
			return a.export(cmd, electionID, func(v *artifacts.View) (*export.Result, error) {
				g, err := v.Guardian(seq)
				if err != nil {
					return nil, err
				}
				return v.ExportField(g.ID, field)
			})
		},
	}
	guardianCmd := &cobra.Command{
		Use:   "guardian [election] <sequence>",
		Short: "Export the complete record of a guardian",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, rest, err := a.splitElection(args, 1)
			if err != nil {
				return err
			}
			seq, err := parseSequence(rest[0])
			if err != nil {
				return err
			}
			return a.export(cmd, electionID, func(v *artifacts.View) (*export.Result, error) {
				g, err := v.Guardian(seq)
				if err != nil {
					return nil, err
				}
				return v.ExportGuardian(g.ID)
			})
		},
	}
	allCmd := &cobra.Command{
		Use:   "all [election]",
		Short: "Export every guardian of an election",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, _, err := a.splitElection(args, 0)
			if err != nil {
				return err
			}
			return a.export(cmd, electionID, (*artifacts.View).ExportAll)
		},
	}
	cmd.AddCommand(fieldCmd, guardianCmd, allCmd)
	return cmd
}

func (a *app) export(cmd *cobra.Command, electionID string,
	fn func(*artifacts.View) (*export.Result, error),
) error {
	sink, err := a.sink()
	if err != nil {
		return err
	}
	v, err := a.load(cmd.Context(), electionID, sink)
	if err != nil {
		return err
	}
	defer v.Close()
	res, err := fn(v)
	if err != nil {
		return err
	}
	infoPrint.Fprintf(cmd.OutOrStdout(), "saved %s\n", res.SavedAs)
	return nil
}

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the local archive of exported manifests",
	}
	lsCmd := &cobra.Command{
		Use:   "ls [election]",
		Short: "List the archived manifests of an election",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionID, _, err := a.splitElection(args, 0)
			if err != nil {
				return err
			}
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			entries, err := archive.List(electionID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				keysPrint.Fprint(w, e.Name)
				valuesPrint.Fprintf(w, "\t%s\n", types.NewTimestamp(e.Saved))
			}
			return nil
		},
	}
	var outFile string
	getCmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print an archived manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			content, err := archive.Get(args[0])
			if err != nil {
				return err
			}
			if outFile != "" {
				return os.WriteFile(outFile, content, 0o644)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(content))
			return err
		},
	}
	getCmd.Flags().StringVar(&outFile, "out", "", "write the manifest to this file instead of stdout")
	rmCmd := &cobra.Command{
		Use:   "rm <name>...",
		Short: "Remove archived manifests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.openArchive()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := archive.Remove(name); err != nil {
					return err
				}
				infoPrint.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			}
			return archive.Compact()
		},
	}
	cmd.AddCommand(lsCmd, getCmd, rmCmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check the credentials given with --email and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session == "" {
				return errors.New("missing --email")
			}
			infoPrint.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", a.session)
			return nil
		},
	}
}

func parseSequence(s string) (int, error) {
	seq, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("invalid guardian sequence %q", s)
	}
	return seq, nil
}

func parseFields(names []string) ([]types.ArtifactField, error) {
	var fields []types.ArtifactField
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return types.ArtifactFields, nil
		}
		f, err := types.ParseArtifactField(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}
