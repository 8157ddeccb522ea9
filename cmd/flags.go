package cmd

import (
	"github.com/gnames/gncldf/pkg/config"
	"github.com/spf13/cobra"
)

// funcFlag turns a flag into a config option if the flag was set.
type funcFlag func(cmd *cobra.Command) (config.Option, bool)

func boolFlag(name string, opt func(bool) config.Option) funcFlag {
	return func(cmd *cobra.Command) (config.Option, bool) {
		if !cmd.Flags().Changed(name) {
			return nil, false
		}
		b, _ := cmd.Flags().GetBool(name)
		return opt(b), true
	}
}

func stringFlag(name string, opt func(string) config.Option) funcFlag {
	return func(cmd *cobra.Command) (config.Option, bool) {
		if !cmd.Flags().Changed(name) {
			return nil, false
		}
		s, _ := cmd.Flags().GetString(name)
		return opt(s), true
	}
}

// applyFlags updates the config with flags given on the command line,
// so they take precedence over env vars and config.yaml.
func applyFlags(cmd *cobra.Command, flags ...funcFlag) {
	var opts []config.Option
	for _, f := range flags {
		if opt, ok := f(cmd); ok {
			opts = append(opts, opt)
		}
	}
	cfg.Update(opts)
}
