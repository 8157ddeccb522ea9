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
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/internal/iodataset"
	"github.com/gnames/gncldf/internal/iodb"
	"github.com/gnames/gncldf/internal/iopopulate"
	"github.com/gnames/gncldf/internal/ioschema"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/db"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/schema"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/spf13/cobra"
)

// getCreateDBCmd returns the createdb command.
func getCreateDBCmd() *cobra.Command {
	var force bool

	createDBCmd := &cobra.Command{
		Use:   "createdb DATASET",
		Short: "Load a dataset into an SQL database",
		Long: `Load a valid CLDF dataset into SQLite or PostgreSQL.

This command:
  1. Validates the dataset and refuses to load it if there are errors
  2. Derives the SQL schema: one table per CSV table, association
     tables for list-valued references and sources, SourceTable
     for the bibliography
  3. Checks for existing tables and prompts for confirmation
  4. Creates the tables and imports all rows in one transaction
  5. Records the import in the cldf_datasets table

Use --force to skip confirmation and drop existing tables.

Examples:
  gncldf createdb cldf/
  gncldf createdb --path wordlist.sqlite cldf/Wordlist-metadata.json
  gncldf createdb --driver postgres --force cldf/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyFlags(cmd,
				stringFlag("driver", config.OptDatabaseDriver),
				stringFlag("path", config.OptDatabasePath),
			)

			err := runCreateDB(cmd.Context(), cmd.InOrStdin(), args[0], force)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	createDBCmd.Flags().StringP("driver", "d", "sqlite",
		"database driver: sqlite or postgres")
	createDBCmd.Flags().StringP("path", "p", "cldf.sqlite",
		"SQLite database file")
	createDBCmd.Flags().BoolVarP(&force, "force", "f", false,
		"drop existing tables without confirmation")

	return createDBCmd
}

func runCreateDB(
	ctx context.Context,
	in io.Reader,
	loc string,
	force bool,
) error {
	reg, err := registry()
	if err != nil {
		return err
	}
	d, err := iodataset.Open(ctx, reg, loc, cfg.DatasetCacheDir())
	if err != nil {
		return err
	}

	gn.Info("Validating <em>%s</em>...", loc)
	rep, err := d.Validate()
	if err != nil {
		return err
	}
	if rep.HasErrors() {
		for _, v := range rep.Filter(func(d validate.Diagnostic) bool {
			return d.Severity == validate.Error
		}) {
			gn.Warn("%s", v.String())
		}
		return invalidDatasetError(loc, rep.Count(validate.Error))
	}

	res, err := d.Resolved()
	if err != nil {
		return err
	}
	bib, err := d.Bibliography()
	if err != nil {
		return err
	}
	s, err := schema.Build(res, bib)
	if err != nil {
		return err
	}

	op := iodb.NewOperator(&cfg.Database)
	if err = op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	ok, err := prepareDB(ctx, op, in, force)
	if err != nil || !ok {
		return err
	}

	gn.Info("Creating <em>%d</em> tables...", len(s.Tables))
	if err = ioschema.NewManager(op).Create(ctx, s); err != nil {
		return err
	}

	pop := iopopulate.NewPopulator(op, cfg)
	if err = pop.Populate(ctx, d, s); err != nil {
		return err
	}

	gn.Info("\nDatabase is ready")
	return nil
}

// prepareDB drops existing tables after confirmation. It returns false
// if the user declined.
func prepareDB(
	ctx context.Context,
	op db.Operator,
	in io.Reader,
	force bool,
) (bool, error) {
	hasTables, err := op.HasTables(ctx)
	if err != nil || !hasTables {
		return err == nil, err
	}

	if !force {
		gn.Warn("\nWarning: Database contains existing tables.")
		gn.Warn("Loading the dataset will drop ALL existing tables and data.")
		fmt.Print("\nDo you want to continue? (yes/no): ")

		reader := bufio.NewReader(in)
		response, err := reader.ReadString('\n')
		if err != nil && response == "" {
			gn.Warn("Failed to read user input")
			return false, err
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" && response != "y" {
			gn.Info("Aborted. No changes made.")
			return false, nil
		}
	}

	gn.Info("Dropping all existing tables...")
	if err = op.DropAllTables(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func invalidDatasetError(loc string, errorsNum int) error {
	return &gn.Error{
		Code: errcode.RowValidationError,
		Msg: `Dataset <em>%s</em> has <em>%d</em> errors

<em>How to fix:</em>
  1. Run 'gncldf validate' to see all diagnostics
  2. Fix the dataset and try again`,
		Vars: []any{loc, errorsNum},
		Err:  fmt.Errorf("dataset %s has %d errors", loc, errorsNum),
	}
}
