package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/insights-dashboard/internal/config"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Insights dashboard tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (env overrides it)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newExportCmd(opts), newThemeCmd(opts))
	return root
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configFile)
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	var w io.Writer = io.Discard
	if o.verbose {
		w = cmd.ErrOrStderr()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
