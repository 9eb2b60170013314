// SPDX-License-Identifier: MIT
// Package cmd implements the command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spectro/internal/config"
	"spectro/internal/log"
	"spectro/pkg/build"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	workers    int
	verbose    bool
}

// Execute runs the command line with args and returns the first error. An
// interrupt or SIGTERM cancels the running command's context.
func Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	info := build.Get()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")
	flags.StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	flags.IntVarP(&opts.workers, "workers", "w", 0,
		"Concurrent tile renders (0 uses every CPU)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	rootCmd.AddCommand(
		newRenderCommand(opts),
		newToneCommand(),
		newInfoCommand(),
		newBandsCommand(),
		newDevicesCommand(),
		newServeCommand(opts),
	)
	return rootCmd
}

// load reads the configuration and applies the shared flags the user set
// explicitly on top of it.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.SetLevel(cfg.Level())
	return cfg, nil
}
