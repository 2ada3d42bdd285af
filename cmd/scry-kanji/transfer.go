package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/scry-kanji/internal/progress"
	"github.com/spf13/cobra"
)

var errImportNotConfirmed = errors.New("import replaces all progress; rerun with --yes to confirm")

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export progress and preferences as JSON",
		Long: `Write a backup of every item's progress and the display preferences.
Without a file, or with -, the export is written to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := c.scheduler(cmd)
			if err != nil {
				return err
			}
			defer sc.Close()

			snap, err := sc.Items.Export(cmd.Context(), sc.Clock())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", args[0], err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				return err
			}
			sc.Logger.Info("progress exported", "records", len(snap.ItemProgress))
			return nil
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all progress with an export",
		Long: `Replace every item's progress, and the preferences if the file has them,
with the contents of an export. Progress is replaced, never merged.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read import: %w", err)
			}

			snap, err := progress.ParseImport(data)
			if err != nil {
				return err
			}
			if !yes {
				return errImportNotConfirmed
			}

			sc, err := c.scheduler(cmd)
			if err != nil {
				return err
			}
			defer sc.Close()

			if err := sc.Items.ApplyImport(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported progress for %d items.\n", len(snap.ItemProgress))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing all progress")
	return cmd
}
