package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/hedj/internal/movement"
)

func newMoversCommand() *cobra.Command {
	var (
		format  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "movers",
		Short: "List significant line and price moves in the latest snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			d := newDeps(cfg)
			defer d.Close()

			p, err := d.pipeline(ctx, false)
			if err != nil {
				return err
			}
			if refresh {
				if _, err := p.RegenerateLatest(ctx); err != nil {
					return err
				}
			}
			movers, err := p.Movers(ctx, cfg.MoverThresholds())
			if err != nil {
				return err
			}
			return writeMovers(cmd.OutOrStdout(), format, movers)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Regenerate the latest snapshot from history first")
	return cmd
}

func writeMovers(w io.Writer, format string, movers []movement.Mover) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, m := range movers {
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range movers {
		if _, err := fmt.Fprintln(w, m.Headline()); err != nil {
			return err
		}
	}
	return nil
}
