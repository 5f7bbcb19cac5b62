package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hetulpatel/hedj/internal/hashutil"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

const insertOpportunitySQL = `
INSERT INTO opportunities (
	run_id, kind, opportunity_key, key_hash, sport, event_id, market,
	headline, metric, observed_at, detected_at, raw_json
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`

// InsertOpportunities records every opportunity surfaced by one scan run.
func (s *Store) InsertOpportunities(ctx context.Context, runID string, opps []opportunity.Opportunity, detectedAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(opps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertOpportunitySQL)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, opp := range opps {
		payload := opportunity.NewPayload(runID, opp, detectedAt)
		rawJSON, err := json.Marshal(payload)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal payload: %w", err)
		}
		sport, event, market := opp.Where()
		_, err = stmt.ExecContext(ctx,
			runID,
			string(opp.Kind),
			payload.Key,
			hashutil.ShortHash(payload.Key),
			sport,
			event,
			market,
			opp.Headline(),
			opp.Metric(),
			formatTime(opp.ObservedAt()),
			formatTime(payload.DetectedAt),
			string(rawJSON),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert opportunity %s: %w", payload.Key, err)
		}
	}
	return tx.Commit()
}

// OpportunityRow is one ledger entry.
type OpportunityRow struct {
	RunID      string
	Kind       opportunity.Kind
	Key        string
	Headline   string
	Metric     float64
	DetectedAt time.Time
}

// ListOpportunities returns ledger entries detected at or after since, oldest first.
func (s *Store) ListOpportunities(ctx context.Context, since time.Time) ([]OpportunityRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, kind, opportunity_key, headline, metric, detected_at
FROM opportunities WHERE detected_at >= ? ORDER BY id`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	out := make([]OpportunityRow, 0)
	for rows.Next() {
		var (
			r        OpportunityRow
			kind, at string
		)
		if err := rows.Scan(&r.RunID, &kind, &r.Key, &r.Headline, &r.Metric, &at); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		r.Kind = opportunity.Kind(kind)
		if r.DetectedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse detected_at %q: %w", at, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
