package arb

import (
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

// Quote is the current price one book offers for one outcome.
type Quote struct {
	Book       string
	Sport      string
	EventID    string
	HomeTeam   string
	AwayTeam   string
	EventStart time.Time
	Market     odds.MarketType
	Outcome    string
	Price      int
	Line       *float64
	UpdatedAt  time.Time
}

// QuotesFromMovements builds the cross-book price picture from the latest snapshot.
func QuotesFromMovements(movements []odds.Movement) []Quote {
	out := make([]Quote, 0, len(movements))
	for _, m := range movements {
		out = append(out, Quote{
			Book:       m.Book,
			Sport:      m.Sport,
			EventID:    m.EventID,
			HomeTeam:   m.HomeTeam,
			AwayTeam:   m.AwayTeam,
			EventStart: m.EventStart,
			Market:     m.Market,
			Outcome:    m.Outcome,
			Price:      m.CurrentPrice,
			Line:       m.CurrentLine,
			UpdatedAt:  m.LastUpdated,
		})
	}
	return out
}

// eligible drops quotes from books outside the allow-list, malformed prices,
// and anything the caller's keep predicate rejects.
func eligible(quotes []Quote, books BookSet, keep func(Quote) bool) []Quote {
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if !books.Allows(q.Book) || !odds.IsValidAmerican(q.Price) {
			continue
		}
		if keep != nil && !keep(q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// startsAfter keeps events with a known start strictly after now.
func startsAfter(now time.Time) func(Quote) bool {
	return func(q Quote) bool {
		return !q.EventStart.IsZero() && q.EventStart.After(now)
	}
}

// startsWithin keeps events starting in (now, now+window].
func startsWithin(now time.Time, window time.Duration) func(Quote) bool {
	end := now.Add(window)
	return func(q Quote) bool {
		return !q.EventStart.IsZero() && q.EventStart.After(now) && !q.EventStart.After(end)
	}
}

func older(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
