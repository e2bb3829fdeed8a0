package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/basinlabs/pgbridge/internal/logger"
)

var debug bool

// RootCmd is the base command: `pgbridge`.
var RootCmd = &cobra.Command{
	Use:   "pgbridge",
	Short: "Migrate PostgreSQL schema and row data between databases",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger.SetGlobal(slog.New(handler), debug)
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// Execute runs the root command, printing any error to stderr and exiting
// non-zero.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
