// Package cmd implements the subrec command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/centrimetry/subrec/pkg/logging"
)

var (
	configFile string

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "subrec",
	Short: "Subscriber/transaction batch reconciliation",
	Long: `Subrec reconciles a subscriber registry feed against a transaction
log feed into a single validated, deduplicated dataset.

Known data-quality defects are repaired along the way: field-misaligned
rows, missing timestamps, corrupted amounts, and invalid channel codes.
Matched records go to a SQLite database, unmatched records to a Parquet
file for data-quality follow-up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	// Signal-aware context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("Batch failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./.subrec.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "auto", "log format (auto, console, json)")

	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("Failed to bind log-level flag: %v", err))
	}
	if err := viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		panic(fmt.Sprintf("Failed to bind log-format flag: %v", err))
	}
}
