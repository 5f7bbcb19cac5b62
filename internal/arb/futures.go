package arb

import (
	"sort"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

// FindFuturesValue compares futures prices for the same (sport, selection)
// across allowed books. At least two books must quote the selection; the edge
// is the implied-probability gap between the worst and best price, emitted
// when it exceeds cfg.FuturesMinEdgePercent. Largest edge first.
func FindFuturesValue(quotes []Quote, cfg Config, now time.Time) []opportunity.Opportunity {
	picture := eligible(quotes, cfg.Books, func(q Quote) bool {
		if q.Market != odds.MarketFutures {
			return false
		}
		// futures without a start time are open-ended
		return q.EventStart.IsZero() || q.EventStart.After(now)
	})

	type selectionKey struct{ sport, selection string }
	groups := make(map[selectionKey][]Quote)
	order := make([]selectionKey, 0)
	for _, q := range picture {
		k := selectionKey{q.Sport, q.Outcome}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], q)
	}

	type scored struct {
		opp  opportunity.Opportunity
		edge float64
	}
	found := make([]scored, 0)
	for _, k := range order {
		group := groups[k]
		if distinctBooks(group) < 2 {
			continue
		}
		best, ok := bestQuote(group, "")
		if !ok {
			continue
		}
		worst, ok := worstQuote(group, best.Book)
		if !ok {
			continue
		}
		edge := (worst.implied - best.implied) * 100
		if edge <= cfg.FuturesMinEdgePercent {
			continue
		}
		title := best.HomeTeam
		if title == "" {
			title = best.EventID
		}
		fv := opportunity.FuturesValue{
			Sport:       k.sport,
			MarketTitle: title,
			Selection:   k.selection,
			BestBook:    best.Book,
			BestPrice:   best.Price,
			WorstBook:   worst.Book,
			WorstPrice:  worst.Price,
			EdgePercent: round(edge, 2),
			ObservedAt:  older(best.UpdatedAt, worst.UpdatedAt),
		}
		found = append(found, scored{opp: opportunity.NewFuturesValue(fv), edge: edge})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].edge > found[j].edge })
	out := make([]opportunity.Opportunity, len(found))
	for i, s := range found {
		out[i] = s.opp
	}
	return out
}

// worstQuote returns the lowest price from any book other than exclude.
func worstQuote(quotes []Quote, exclude string) (pricedQuote, bool) {
	var worst Quote
	found := false
	for _, q := range quotes {
		if q.Book == exclude {
			continue
		}
		if !found || q.Price < worst.Price {
			worst = q
			found = true
		}
	}
	if !found {
		return pricedQuote{}, false
	}
	dec, err := odds.AmericanToDecimal(worst.Price)
	if err != nil {
		return pricedQuote{}, false
	}
	return pricedQuote{Quote: worst, decimal: dec, implied: 1 / dec}, true
}

func distinctBooks(quotes []Quote) int {
	seen := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		seen[q.Book] = struct{}{}
	}
	return len(seen)
}
