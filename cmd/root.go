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
	"fmt"
	"log/slog"
	"os"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/internal/ioconfig"
	"github.com/gnames/gncldf/internal/iofs"
	"github.com/gnames/gncldf/internal/iologger"
	app "github.com/gnames/gncldf/pkg"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/spf13/cobra"
)

var (
	homeDir  string
	cacheDir string
	cfg      *config.Config
)

// getRootCmd returns the root command with all subcommands.
// Extracted as a function to facilitate testing.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "gncldf",
		Short:   "Validate CLDF datasets and load them into SQL databases",
		Long: `GNcldf works with datasets in the Cross-Linguistic Data Formats
(CLDF): CSV tables described by a CSVW JSON metadata file and bound
to the CLDF ontology.

A dataset can be given as a metadata file, a directory, a zip archive
or a URL of a metadata file. Remote datasets are downloaded to the
cache directory once.

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (GNCLDF_*)
  3. Config file (~/.config/gncldf/config.yaml)
  4. Built-in defaults

Environment Variables:
  Nested fields use underscores (database.driver → GNCLDF_DATABASE_DRIVER).

  Examples:
    GNCLDF_VALIDATE_STRICT          Stop at the first invalid row
    GNCLDF_DATABASE_DRIVER          sqlite or postgres
    GNCLDF_DATABASE_HOST            PostgreSQL host
    GNCLDF_LOG_LEVEL                Log level (debug/info/warn/error)
    GNCLDF_JOBS_NUMBER              Datasets validated in parallel`,
		PersistentPreRunE: bootstrap,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "gncldf version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for gncldf")

	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "",
		"directory for downloaded datasets (default: ~/.cache/gncldf/datasets)")

	rootCmd.AddCommand(
		getValidateCmd(),
		getStatsCmd(),
		getCreateDBCmd(),
		getConfigCmd(),
	)

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if cfg, err = ioconfig.Load(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	opts := []config.Option{config.OptHomeDir(homeDir)}
	if cacheDir != "" {
		opts = append(opts, config.OptCacheDir(cacheDir))
	}
	cfg.Update(opts)

	// Reconfigure logging with user's settings, keeping the
	// bootstrap records.
	if err = iologger.Init(config.LogDir(homeDir), cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir),
		"command", cmd.Name(),
	)
	return nil
}

// registry loads the ontology that binds tables and columns of datasets.
func registry() (*terms.Registry, error) {
	reg, err := terms.Load(terms.DefaultVersion)
	if err != nil {
		gn.PrintErrorMessage(err)
		return nil, err
	}
	return reg, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
