package movement

import (
	"sort"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/odds"
)

// Aggregate reduces a history, in arrival order, to one Movement per
// (book, sport, event, market, outcome). Opening values come from the earliest
// observation of each key and current values from the latest one; timestamp
// ties keep arrival order. Rows carrying an invalid price are skipped.
//
// The output is sorted by (sport, event, market, outcome); keys that tie on all
// four keep the order in which they first appeared in the history.
func Aggregate(history []odds.Observation) []odds.Movement {
	groups := make(map[odds.Key][]odds.Observation)
	order := make([]odds.Key, 0)
	for i, obs := range history {
		if !odds.IsValidAmerican(obs.Price) {
			logging.Warnf("[movement] skipping row %d (%s/%s): invalid price %d", i, obs.Book, obs.EventID, obs.Price)
			continue
		}
		key := obs.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], obs)
	}

	out := make([]odds.Movement, 0, len(order))
	for _, key := range order {
		out = append(out, reduce(groups[key]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Sport != b.Sport {
			return a.Sport < b.Sport
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.Outcome < b.Outcome
	})
	return out
}

func reduce(rows []odds.Observation) odds.Movement {
	sorted := make([]odds.Observation, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	first := sorted[0]
	last := sorted[len(sorted)-1]

	m := odds.Movement{
		Book:          last.Book,
		Sport:         last.Sport,
		EventID:       last.EventID,
		EventStart:    last.EventStart,
		HomeTeam:      last.HomeTeam,
		AwayTeam:      last.AwayTeam,
		Market:        last.Market,
		Outcome:       last.Outcome,
		OpeningPrice:  first.Price,
		CurrentPrice:  last.Price,
		PriceMovement: last.Price - first.Price,
		OpeningLine:   copyLine(first.Line),
		CurrentLine:   copyLine(last.Line),
		LastUpdated:   last.Timestamp,
	}
	if m.OpeningLine != nil && m.CurrentLine != nil {
		delta := *m.CurrentLine - *m.OpeningLine
		m.LineMovement = &delta
	}
	return m
}

func copyLine(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
