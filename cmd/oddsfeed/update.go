package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/hedj/internal/collectors"
	"github.com/hetulpatel/hedj/internal/logging"
)

func newUpdateCommand() *cobra.Command {
	var (
		sports []string
		every  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch odds from the provider, append to history and regenerate the latest snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer d.Close()

			p, err := d.pipeline(ctx, false)
			if err != nil {
				return err
			}
			provider, err := d.provider(ctx)
			if err != nil {
				return err
			}
			if len(sports) == 0 {
				sports = cfg.Provider.Sports
			}

			run := func(ctx context.Context) error {
				_, err := p.Update(ctx, provider, sports)
				return err
			}
			if every <= 0 {
				return run(ctx)
			}
			logging.Infof("[update] polling %s every %s", provider.Name(), every)
			collectors.RunLoop(ctx, "update", every, run)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sports, "sports", nil, "Sports to fetch (default: provider.sports, empty = all)")
	cmd.Flags().DurationVar(&every, "every", 0, "Keep running and update on this interval")
	return cmd
}

func newLatestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Regenerate the latest snapshot from the full history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer d.Close()

			p, err := d.pipeline(ctx, false)
			if err != nil {
				return err
			}
			n, err := p.RegenerateLatest(ctx)
			if err != nil {
				return err
			}
			logging.Infof("[latest] %d movements written to %s", n, cfg.Storage.LatestPath)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop history older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := newDeps(cfg)
			defer d.Close()

			p, err := d.pipeline(ctx, false)
			if err != nil {
				return err
			}
			cutoff := cfg.CleanupCutoff(time.Now().UTC(), days)
			removed, err := p.Cleanup(ctx, cutoff)
			if err != nil {
				return err
			}
			logging.Infof("[cleanup] removed %d observations before %s", removed, cutoff.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of history to keep (default: storage.cleanup_days)")
	return cmd
}
