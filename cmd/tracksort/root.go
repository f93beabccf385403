package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFiles []string
	var logFormat string
	var logLevel string

	ctx := newCommandContext(&envFiles, &logFormat, &logLevel)

	rootCmd := &cobra.Command{
		Use:           "tracksort",
		Short:         "Sort tracks into language playlists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Environment file(s) to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newClassifyCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newCheckMapCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
