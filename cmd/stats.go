/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gncldf/internal/iodataset"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// getStatsCmd returns the stats command.
func getStatsCmd() *cobra.Command {
	var asJSON bool

	statsCmd := &cobra.Command{
		Use:   "stats DATASET",
		Short: "Show tables, columns and row counts of a dataset",
		Long: `Show the CLDF module of a dataset, its tables with components and
row counts, columns with their property bindings, and the number of
bibliography entries.

Rows are counted without validation.

Examples:
  gncldf stats cldf/
  gncldf stats --json https://example.org/cldf/Wordlist-metadata.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runStats(cmd.Context(), cmd.OutOrStdout(), args[0], asJSON)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	statsCmd.Flags().BoolVarP(&asJSON, "json", "j", false,
		"print statistics as JSON")

	return statsCmd
}

func runStats(ctx context.Context, out io.Writer, loc string, asJSON bool) error {
	reg, err := registry()
	if err != nil {
		return err
	}
	d, err := iodataset.Open(ctx, reg, loc, cfg.DatasetCacheDir())
	if err != nil {
		return err
	}
	st, err := d.Stats()
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	printStats(out, d, st)
	return nil
}

func printStats(out io.Writer, d *dataset.Dataset, st *dataset.Stats) {
	fmt.Fprintf(out, "Dataset: %s\n", d.Location())
	if title := d.Metadata().Title(); title != "" {
		fmt.Fprintf(out, "Title:   %s\n", title)
	}
	fmt.Fprintf(out, "Module:  %s\n", st.Module)
	fmt.Fprintf(out, "Sources: %s\n", humanize.Comma(int64(st.Sources)))

	columns := make(map[string][]resolver.ColumnSummary)
	for _, ts := range st.Schema.Tables {
		columns[ts.URL] = ts.Columns
	}

	for _, t := range st.Tables {
		fmt.Fprintln(out)
		name := t.URL
		if t.Component != "" {
			name = fmt.Sprintf("%s (%s)", t.URL, t.Component)
		}
		fmt.Fprintf(out, "%s: %s rows\n", name, humanize.Comma(int64(t.Rows)))
		for _, c := range columns[t.URL] {
			var notes []string
			if c.Property != "" {
				notes = append(notes, c.Property)
			}
			if c.Datatype != "" {
				notes = append(notes, c.Datatype)
			}
			if c.Separator != "" {
				notes = append(notes, fmt.Sprintf("list %q", c.Separator))
			}
			if c.Required {
				notes = append(notes, "required")
			}
			fmt.Fprintf(out, "  %-24s %s\n", c.Name, strings.Join(notes, ", "))
		}
	}
}
