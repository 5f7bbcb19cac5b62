package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hetulpatel/hedj/internal/arb"
	"github.com/hetulpatel/hedj/internal/collectors"
	"github.com/hetulpatel/hedj/internal/dedup"
	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/movement"
	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

// History is the append-only observation store.
type History interface {
	Append(ctx context.Context, rows []odds.Observation) (int, error)
	Load(ctx context.Context) ([]odds.Observation, error)
	Cleanup(ctx context.Context, before time.Time) (int, error)
}

// Snapshot is the latest-movements view, replaced wholesale on write.
type Snapshot interface {
	Write(movements []odds.Movement) error
	Read(ctx context.Context) ([]odds.Movement, error)
}

// Ledger records surfaced opportunities.
type Ledger interface {
	InsertOpportunities(ctx context.Context, runID string, opps []opportunity.Opportunity, detectedAt time.Time) error
}

// Publisher hands opportunities to the delivery side.
type Publisher func(ctx context.Context, runID string, opps []opportunity.Opportunity, detectedAt time.Time) error

// Pipeline wires the stores to the aggregator and detectors. Ledger and
// Publish are optional.
type Pipeline struct {
	History  History
	Latest   Snapshot
	Detector arb.Config
	Ledger   Ledger
	Publish  Publisher
	Now      func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// UpdateResult summarizes one update run.
type UpdateResult struct {
	Fetched   int
	Rejected  int
	Appended  int
	Movements int
}

// Update fetches from the provider, appends the valid observations and
// regenerates the latest snapshot. Provider input is acknowledged once the
// append has succeeded.
func (p *Pipeline) Update(ctx context.Context, provider collectors.Provider, sports []string) (UpdateResult, error) {
	var res UpdateResult
	rows, err := provider.Fetch(ctx, sports)
	if err != nil {
		return res, fmt.Errorf("fetch from %s: %w", provider.Name(), err)
	}
	res.Fetched = len(rows)

	valid := Clean(provider.Name(), rows)
	res.Rejected = res.Fetched - len(valid)

	n, err := p.History.Append(ctx, valid)
	if err != nil {
		return res, fmt.Errorf("append history: %w", err)
	}
	res.Appended = n
	metrics.ObservationsAppended.Add(float64(n))

	if acker, ok := provider.(collectors.Acker); ok {
		if err := acker.Ack(ctx); err != nil {
			return res, fmt.Errorf("ack %s: %w", provider.Name(), err)
		}
	}

	res.Movements, err = p.RegenerateLatest(ctx)
	if err != nil {
		return res, err
	}
	logging.Infof("[update] fetched=%d rejected=%d appended=%d movements=%d", res.Fetched, res.Rejected, res.Appended, res.Movements)
	return res, nil
}

// Clean normalizes provider rows and drops the ones that cannot be stored.
func Clean(source string, rows []odds.Observation) []odds.Observation {
	out := make([]odds.Observation, 0, len(rows))
	for i, o := range rows {
		o.Book = odds.NormalizeBook(o.Book)
		if m, err := odds.ParseMarketType(string(o.Market)); err == nil {
			o.Market = m
		}
		if o.Market == odds.MarketFutures {
			o.Line = nil
		}
		if err := o.Validate(); err != nil {
			metrics.RowsRejected.WithLabelValues(source, reason(err)).Inc()
			logging.Warnf("[%s] rejecting row %d (%s/%s): %v", source, i, o.Book, o.EventID, err)
			continue
		}
		out = append(out, o)
	}
	return out
}

func reason(err error) string {
	switch {
	case errors.Is(err, odds.ErrInvalidPrice):
		return "price"
	case errors.Is(err, odds.ErrUnknownMarket):
		return "market"
	case errors.Is(err, odds.ErrMissingField):
		return "missing_field"
	}
	return "invalid"
}

// RegenerateLatest rebuilds the snapshot from the full history. An
// unreadable history aborts before the previous snapshot is touched.
func (p *Pipeline) RegenerateLatest(ctx context.Context) (int, error) {
	history, err := p.History.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}
	movements := movement.Aggregate(history)
	if err := p.Latest.Write(movements); err != nil {
		return 0, err
	}
	metrics.MovementsWritten.Set(float64(len(movements)))
	return len(movements), nil
}

// Movers lists the significant line and price moves in the latest snapshot.
func (p *Pipeline) Movers(ctx context.Context, th movement.Thresholds) ([]movement.Mover, error) {
	movements, err := p.Latest.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read latest: %w", err)
	}
	movers := movement.Significant(movements, th)
	metrics.SignificantMovements.Set(float64(len(movers)))
	logging.Infof("[movers] %d of %d movements reached the thresholds", len(movers), len(movements))
	return movers, nil
}

// ScanResult is the outcome of one detection run.
type ScanResult struct {
	RunID      string
	DetectedAt time.Time
	Detected   int
	New        []opportunity.Opportunity
	Suppressed int
}

// Scan runs the requested detectors over the latest snapshot and filters the
// results through the dedup store. New keys are only marked in memory; call
// Commit once the opportunities have been delivered.
func (p *Pipeline) Scan(ctx context.Context, kinds []opportunity.Kind, store dedup.Store, now time.Time) (ScanResult, error) {
	res := ScanResult{RunID: uuid.NewString(), DetectedAt: now.UTC()}

	movements, err := p.Latest.Read(ctx)
	if err != nil {
		return res, fmt.Errorf("read latest: %w", err)
	}
	found := arb.Detect(kinds, arb.QuotesFromMovements(movements), p.Detector, now)
	res.Detected = len(found)
	for _, opp := range found {
		metrics.OpportunitiesDetected.WithLabelValues(string(opp.Kind)).Inc()
	}

	res.New, res.Suppressed, err = dedup.Filter(ctx, store, found, now)
	if err != nil {
		return res, fmt.Errorf("dedup filter: %w", err)
	}
	logging.Infof("[scan] run=%s detected=%d new=%d suppressed=%d", res.RunID, res.Detected, len(res.New), res.Suppressed)
	return res, nil
}

// Deliver records and publishes the new opportunities of a scan. Both sinks
// are attempted; the first failure is returned.
func (p *Pipeline) Deliver(ctx context.Context, res ScanResult) error {
	if len(res.New) == 0 {
		return nil
	}
	var firstErr error
	if p.Ledger != nil {
		if err := p.Ledger.InsertOpportunities(ctx, res.RunID, res.New, res.DetectedAt); err != nil {
			logging.Errorf("[scan] ledger insert failed: %v", err)
			firstErr = fmt.Errorf("record opportunities: %w", err)
		}
	}
	if p.Publish != nil {
		if err := p.Publish(ctx, res.RunID, res.New, res.DetectedAt); err != nil {
			logging.Errorf("[scan] publish failed: %v", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("publish opportunities: %w", err)
			}
		}
	}
	return firstErr
}

// Commit persists the dedup store at the end of a run, whether or not the
// scan found anything new. A run whose delivery failed should not commit, so
// its opportunities alert again next time.
func (p *Pipeline) Commit(ctx context.Context, store dedup.Store) error {
	if err := store.Save(ctx); err != nil {
		return fmt.Errorf("save dedup store: %w", err)
	}
	return nil
}

// Cleanup applies history retention and refreshes the snapshot so it keeps
// matching the history.
func (p *Pipeline) Cleanup(ctx context.Context, before time.Time) (int, error) {
	removed, err := p.History.Cleanup(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}
	if _, err := p.RegenerateLatest(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}
