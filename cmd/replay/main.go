package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "replay",
		Short:         "inspect replayed programmable transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		inspectCommand(),
		publishCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("replay failed", "err", err)
		os.Exit(1)
	}
}
