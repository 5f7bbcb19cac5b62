package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/odds"
)

const metricsSource = "history_sqlite"

const insertObservationSQL = `
INSERT INTO observations (
	timestamp_utc, book, sport, event_id, event_start_time, home_team, away_team,
	market_type, outcome, price, line
) VALUES (?,?,?,?,?,?,?,?,?,?,?)
`

// Append inserts observations in one transaction. Arrival order is the
// autoincrement id.
func (s *Store) Append(ctx context.Context, rows []odds.Observation) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, o := range rows {
		var line sql.NullFloat64
		if o.Line != nil {
			line = sql.NullFloat64{Float64: *o.Line, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			formatTime(o.Timestamp),
			o.Book,
			o.Sport,
			o.EventID,
			formatTime(o.EventStart),
			o.HomeTeam,
			o.AwayTeam,
			string(o.Market),
			o.Outcome,
			o.Price,
			line,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logging.Infof("[history] appended %d rows to %s", len(rows), s.path)
	return len(rows), nil
}

// Load returns every observation in arrival order. Rows that fail validation
// are skipped and counted.
func (s *Store) Load(ctx context.Context) ([]odds.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp_utc, book, sport, event_id, event_start_time, home_team, away_team,
	market_type, outcome, price, line
FROM observations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := make([]odds.Observation, 0)
	for rows.Next() {
		var (
			id                int64
			ts, market        string
			start, home, away sql.NullString
			o                 odds.Observation
			line              sql.NullFloat64
		)
		if err := rows.Scan(&id, &ts, &o.Book, &o.Sport, &o.EventID, &start, &home, &away, &market, &o.Outcome, &o.Price, &line); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if o.Timestamp, err = parseTime(ts); err != nil {
			skip(id, "timestamp", err)
			continue
		}
		o.EventStart, _ = parseTime(start.String)
		o.HomeTeam = home.String
		o.AwayTeam = away.String
		o.Market = odds.MarketType(market)
		o.Book = odds.NormalizeBook(o.Book)
		if line.Valid {
			v := line.Float64
			o.Line = &v
		}
		if err := o.Validate(); err != nil {
			skip(id, "invalid", err)
			continue
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// Cleanup deletes observations older than the cutoff.
func (s *Store) Cleanup(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM observations WHERE timestamp_utc < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("delete observations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	logging.Infof("[history] cleanup removed %d rows older than %s", n, before.Format(time.RFC3339))
	return int(n), nil
}

func skip(id int64, reason string, err error) {
	metrics.RowsRejected.WithLabelValues(metricsSource, reason).Inc()
	logging.Warnf("[history] skipping observation %d: %v", id, err)
}
