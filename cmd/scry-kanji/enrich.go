package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/enrich"
	"github.com/phrazzld/scry-kanji/internal/platform/jiten"
	"github.com/spf13/cobra"
)

// enrichProgressEvery is how many processed items pass between progress lines.
const enrichProgressEvery = 100

func (c *cli) enrichCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Add kun and on readings to the catalog metadata",
		Long: `Fetch readings from the detail provider for every kanji in the catalog
that lacks kunReadings or onReadings, and write a new metadata file.
Entries that fail are left unchanged, so the command can be re-run.

Examples:
  scry-kanji enrich
  scry-kanji enrich --out data/kanji_metadata.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			log, err := c.logger(cmd, cfg)
			if err != nil {
				return err
			}

			f, err := os.Open(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("failed to open catalog: %w", err)
			}
			cat, err := catalog.Load(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}

			client, err := jiten.NewClient(cfg.Detail, c.opts.HTTPClient, log)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(filepath.Dir(cfg.Catalog.Path), "kanji_metadata_with_readings.json")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Enriching %d kanji from %s\n", cat.Len(), cfg.Catalog.Path)
			started := time.Now()

			enricher := enrich.New(cat, client, cfg.Enrich, log)
			res, runErr := enricher.Run(cmd.Context(), func(s enrich.Stats) {
				if s.Processed%enrichProgressEvery == 0 {
					fmt.Fprintf(out, "  %d/%d processed, %d added, %d failed\n",
						s.Processed, s.Total, s.Success, s.Failed)
				}
			})
			if res == nil {
				return runErr
			}

			if err := enricher.WriteFile(output, res); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			s := res.Stats
			fmt.Fprintf(out, "Total kanji:      %d\n", s.Total)
			fmt.Fprintf(out, "Already had:      %d\n", s.AlreadyHave)
			fmt.Fprintf(out, "Added readings:   %d\n", s.Success)
			fmt.Fprintf(out, "Failed:           %d\n", s.Failed)
			fmt.Fprintf(out, "Duration:         %s\n", time.Since(started).Round(time.Second))
			fmt.Fprintf(out, "Output file:      %s\n", output)
			if s.Failed > 0 {
				fmt.Fprintf(out, "%d kanji failed; re-run to retry.\n", s.Failed)
			}

			if errors.Is(runErr, context.Canceled) {
				fmt.Fprintln(out, "Interrupted; the partial result was written.")
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file (default kanji_metadata_with_readings.json next to the catalog)")
	return cmd
}
