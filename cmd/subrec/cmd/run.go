package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	subrec "github.com/centrimetry/subrec"
	"github.com/centrimetry/subrec/internal/config"
	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/feeds"
	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/sinks/parquetsink"
	"github.com/centrimetry/subrec/pkg/sinks/sqlitesink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation batch",
	Long: `Run reads the subscriber and transaction feeds, repairs and
reconciles them, and writes the matched set to the SQLite database and the
unmatched set to the Parquet output file. The batch either fully succeeds
or fully fails; a failed batch writes neither sink.`,
	RunE: runBatch,
}

func init() {
	runCmd.Flags().String("subscribers", "", "subscriber feed file (required)")
	runCmd.Flags().String("transactions", "", "transaction feed file (required)")
	runCmd.Flags().String("db", "", "SQLite database path")
	runCmd.Flags().String("out", "", "Parquet output path for the unmatched set")
	runCmd.Flags().String("delimiter", "", "feed field delimiter")

	for _, flag := range []string{"subscribers", "transactions", "db", "out", "delimiter"} {
		if err := viper.BindPFlag(flag, runCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", flag, err))
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runBatch(cobraCmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logging.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logging.Default()
	ctx := logging.WithLogger(cobraCmd.Context(), log)

	if cfg.SubscribersPath == "" {
		return errors.NewValidationError("subscribers", "", "subscriber feed path is required")
	}
	if cfg.TransactionsPath == "" {
		return errors.NewValidationError("transactions", "", "transaction feed path is required")
	}

	store, err := sqlitesink.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := subrec.New(
		subrec.WithSubscriberReader(feeds.NewFileSubscriberReader(cfg.SubscribersPath, cfg.DelimiterRune())),
		subrec.WithTransactionReader(feeds.NewFileTransactionReader(cfg.TransactionsPath, cfg.DelimiterRune())),
		subrec.WithRelationalSink(store),
		subrec.WithColumnarSink(parquetsink.New(cfg.OutputPath)),
		subrec.WithRepairConfig(cfg.Repair),
	)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cobraCmd.OutOrStdout(), result.Summary())
	return nil
}
