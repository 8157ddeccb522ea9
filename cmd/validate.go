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
	"log/slog"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/internal/iodataset"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// validation is the outcome of validating one dataset.
type validation struct {
	location string
	report   *validate.Report
	err      error
}

// getValidateCmd returns the validate command.
func getValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate DATASET...",
		Short: "Validate CLDF datasets",
		Long: `Validate one or more CLDF datasets.

Every dataset is checked for conformance to its CLDF module and every
row of every table is validated: datatypes, required cells, primary
and foreign keys, source references and semantic constraints.

By default all findings are collected into a report. With --strict
validation stops at the first invalid row.

Datasets are validated concurrently, see jobs_number in config.yaml.
The exit code is non-zero if any dataset has errors.

Examples:
  gncldf validate cldf/Wordlist-metadata.json
  gncldf validate --strict cldf/
  gncldf validate --format json ds1.zip https://example.org/cldf/Wordlist-metadata.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyFlags(cmd,
				boolFlag("strict", config.OptValidateStrict),
				boolFlag("skip-invalid", config.OptValidateSkipInvalidRows),
				stringFlag("format", config.OptValidateFormat),
			)

			return runValidate(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	validateCmd.Flags().BoolP("strict", "s", false,
		"stop at the first invalid row")
	validateCmd.Flags().Bool("skip-invalid", false,
		"drop invalid rows from row streams")
	validateCmd.Flags().StringP("format", "f", "text",
		"report format: text or json")

	return validateCmd
}

func runValidate(ctx context.Context, out io.Writer, locations []string) error {
	reg, err := registry()
	if err != nil {
		return err
	}

	res := make([]validation, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.JobsNumber, 1))
	for i, loc := range locations {
		g.Go(func() error {
			res[i] = validateDataset(gctx, reg, loc)
			return nil
		})
	}
	_ = g.Wait()

	var invalid int
	for _, v := range res {
		if v.err != nil || v.report.HasErrors() {
			invalid++
		}
		if err = printValidation(out, v); err != nil {
			return err
		}
	}

	if invalid > 0 {
		err = &gn.Error{
			Code: errcode.RowValidationError,
			Msg:  "<em>%d</em> of <em>%d</em> datasets are invalid",
			Vars: []any{invalid, len(locations)},
			Err:  fmt.Errorf("%d of %d datasets are invalid", invalid, len(locations)),
		}
		gn.PrintErrorMessage(err)
		return err
	}
	return nil
}

func validateDataset(
	ctx context.Context,
	reg *terms.Registry,
	loc string,
) validation {
	res := validation{location: loc}
	d, err := iodataset.Open(ctx, reg, loc, cfg.DatasetCacheDir())
	if err != nil {
		res.err = err
		return res
	}
	res.report, res.err = d.Validate(
		validate.OptStrict(cfg.Validate.Strict),
		validate.OptSkipInvalidRows(cfg.Validate.SkipInvalidRows),
	)
	if res.report == nil {
		res.report = &validate.Report{}
	}
	slog.Info("Validated dataset",
		"location", loc,
		"errors", res.report.Count(validate.Error),
		"warnings", res.report.Count(validate.Warning),
		"failed", res.err != nil,
	)
	return res
}

// jsonLine is one record of the JSON lines report.
type jsonLine struct {
	Dataset string `json:"dataset"`
	*validate.Diagnostic
	Error string `json:"error,omitempty"`
}

func printValidation(out io.Writer, v validation) error {
	if cfg.Validate.Format == "json" {
		enc := json.NewEncoder(out)
		for i := range v.report.Diagnostics {
			line := jsonLine{Dataset: v.location, Diagnostic: &v.report.Diagnostics[i]}
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		if v.err != nil {
			return enc.Encode(jsonLine{Dataset: v.location, Error: v.err.Error()})
		}
		return nil
	}

	fmt.Fprintf(out, "%s: %d errors, %d warnings\n", v.location,
		v.report.Count(validate.Error), v.report.Count(validate.Warning))
	for _, d := range v.report.Diagnostics {
		fmt.Fprintf(out, "  %s\n", d)
	}
	if v.err != nil {
		fmt.Fprintf(out, "  failed: %s\n", v.err)
	}
	return nil
}
