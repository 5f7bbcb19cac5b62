package main

import (
	"github.com/spf13/cobra"

	"github.com/hetulpatel/hedj/internal/config"
	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oddsfeed",
		Short: "Odds history, line movement and opportunity scanner",
		Long: `oddsfeed keeps an append-only history of sportsbook odds, derives the
latest line movement per book and outcome, and scans it for arbitrage,
tight lines and futures value across an allow-list of books.

Examples:
  oddsfeed update
  oddsfeed update --every 5m --sports NBA,NHL
  oddsfeed scan --kinds arbitrage,tight_line
  oddsfeed scan --dry-run --format json
  oddsfeed movers --refresh
  oddsfeed cleanup --days 7
  oddsfeed migrate --import-csv`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.InitFromEnv()
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
			if verbose {
				logging.SetLevel(logging.LevelDebug)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			metrics.LastRunTimestamp.WithLabelValues(cmd.Name()).SetToCurrentTime()
			if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				logging.Warnf("[metrics] write textfile: %v", err)
			}
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./hedj.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newLatestCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newCleanupCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newLedgerCommand())
	rootCmd.AddCommand(newMoversCommand())

	return rootCmd
}
