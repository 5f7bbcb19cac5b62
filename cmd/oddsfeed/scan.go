package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/hedj/internal/opportunity"
	"github.com/hetulpatel/hedj/internal/pipeline"
)

var allKinds = []opportunity.Kind{
	opportunity.KindArbitrage,
	opportunity.KindTightLine,
	opportunity.KindFuturesValue,
}

func newScanCommand() *cobra.Command {
	var (
		kinds   []string
		format  string
		dryRun  bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the latest snapshot for new arbitrage, tight-line and futures-value opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			selected, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			d := newDeps(cfg)
			defer d.Close()

			p, err := d.pipeline(ctx, !dryRun)
			if err != nil {
				return err
			}
			if refresh {
				if _, err := p.RegenerateLatest(ctx); err != nil {
					return err
				}
			}

			now := time.Now().UTC()
			store, err := d.dedupStore(now, dryRun)
			if err != nil {
				return err
			}
			res, err := p.Scan(ctx, selected, store, now)
			if err != nil {
				return err
			}
			if err := writeScan(cmd.OutOrStdout(), format, res); err != nil {
				return err
			}
			if err := p.Deliver(ctx, res); err != nil {
				return err
			}
			return p.Commit(ctx, store)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "Detectors to run: arbitrage, tight_line, futures_value (default: all)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not mark alerts, record or publish anything")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Regenerate the latest snapshot from history first")
	return cmd
}

func parseKinds(raw []string) ([]opportunity.Kind, error) {
	if len(raw) == 0 {
		return allKinds, nil
	}
	out := make([]opportunity.Kind, 0, len(raw))
	for _, r := range raw {
		k := opportunity.Kind(strings.ToLower(strings.TrimSpace(r)))
		switch k {
		case opportunity.KindArbitrage, opportunity.KindTightLine, opportunity.KindFuturesValue:
			out = append(out, k)
		default:
			return nil, fmt.Errorf("unknown opportunity kind %q", r)
		}
	}
	return out, nil
}

// writeScan prints new opportunities: JSON lines of payloads for machines,
// one headline per line for people.
func writeScan(w io.Writer, format string, res pipeline.ScanResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		for _, opp := range res.New {
			if err := enc.Encode(opportunity.NewPayload(res.RunID, opp, res.DetectedAt)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, opp := range res.New {
		if _, err := fmt.Fprintln(w, opp.Headline()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d new, %d suppressed, %d detected (run %s)\n", len(res.New), res.Suppressed, res.Detected, res.RunID)
	return err
}
