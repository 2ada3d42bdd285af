package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/phrazzld/scry-kanji/internal/queue"
	"github.com/spf13/cobra"
)

func (c *cli) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many kanji are at each level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.scheduler(cmd)
			if err != nil {
				return err
			}
			defer sc.Close()

			levels := sc.Items.Stats(sc.Catalog)
			filters := sc.Items.FilterCounts(sc.Catalog, sc.Clock())
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"levels": levels, "filters": filters})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "unknown\t%d\n", levels.Unknown)
			fmt.Fprintf(w, "learning\t%d\n", levels.Learning)
			fmt.Fprintf(w, "familiar\t%d\n", levels.Familiar)
			fmt.Fprintf(w, "known\t%d\n", levels.Known)
			fmt.Fprintf(w, "mastered\t%d\n", levels.Mastered)
			fmt.Fprintf(w, "total\t%d\n", levels.Total)
			fmt.Fprintf(w, "due for review\t%d\n", filters.Review)
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) gridCmd() *cobra.Command {
	var (
		sortBy string
		width  int
	)
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print every kanji with its level",
		Long: `Print the catalog as a grid. Each kanji is followed by its level (0-4)
and * when it is due for review.

Orderings: default, frequency, grade, jlpt, strokes, proficiency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := queue.ParseGridSort(sortBy)
			if err != nil {
				return err
			}
			sc, err := c.scheduler(cmd)
			if err != nil {
				return err
			}
			defer sc.Close()

			cells, err := sc.Builder.Grid(mode)
			if err != nil {
				return err
			}
			if width < 1 {
				width = 1
			}

			out := cmd.OutOrStdout()
			var line strings.Builder
			for i, cell := range cells {
				due := " "
				if cell.Due {
					due = "*"
				}
				fmt.Fprintf(&line, "%s%d%s ", cell.Item.ID, cell.Level, due)
				if (i+1)%width == 0 || i == len(cells)-1 {
					fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
					line.Reset()
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "default", "grid ordering")
	cmd.Flags().IntVar(&width, "width", 10, "kanji per row")
	return cmd
}
