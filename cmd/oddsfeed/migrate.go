package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/storage/csvfile"
)

func newMigrateCommand() *cobra.Command {
	var (
		reset     bool
		importCSV bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQLite tables, optionally importing the CSV history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer d.Close()

			store, err := d.sqliteStore(ctx)
			if err != nil {
				return err
			}
			if reset {
				if err := store.DropTables(ctx); err != nil {
					return err
				}
				if err := store.CreateTables(ctx); err != nil {
					return err
				}
				logging.Infof("[migrate] dropped and recreated tables in %s", store.Path())
			}
			if !importCSV {
				return nil
			}

			rows, err := csvfile.NewHistory(cfg.Storage.HistoryPath).Load(ctx)
			if err != nil {
				return err
			}
			start := time.Now()
			n, err := store.Append(ctx, rows)
			if err != nil {
				return err
			}
			logging.Infof("[migrate] imported %d observations from %s in %s", n, cfg.Storage.HistoryPath, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop existing tables first")
	cmd.Flags().BoolVar(&importCSV, "import-csv", false, "Copy storage.history_path into the observations table")
	return cmd
}

func newLedgerCommand() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recorded opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer d.Close()

			store, err := d.sqliteStore(ctx)
			if err != nil {
				return err
			}
			rows, err := store.ListOpportunities(ctx, time.Now().UTC().Add(-since))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "no opportunities recorded")
				return nil
			}
			for _, r := range rows {
				fmt.Fprintf(out, "%s  %-13s %s\n", r.DetectedAt.Format(time.RFC3339), r.Kind, r.Headline)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to list")
	return cmd
}
