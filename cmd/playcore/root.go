// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/playcore/internal/config"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "playcore",
		Short:         "Media playback engine daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Safe defaults until the config is loaded.
			log.Configure(log.Config{
				Level:   opts.logLevel,
				Output:  cmd.ErrOrStderr(),
				Version: version.Version,
			})
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"),
		"path to YAML configuration file (env "+config.EnvPrefix+"CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newResolveCmd(opts), newVersionCmd())
	return root
}

// loadConfig loads the configuration and applies the --log-level override.
func (o *rootOptions) loadConfig() (*config.Loader, config.Config, error) {
	loader := config.NewLoader(o.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return loader, cfg, nil
}
