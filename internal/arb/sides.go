package arb

import (
	"fmt"
	"sort"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

// twoWay is one pair of opposing outcome groups at one event/market/line.
type twoWay struct {
	matchup opportunity.Matchup
	labels  [2]string
	sides   [2][]Quote
}

// pricedQuote is a quote with its decimal odds and implied probability.
type pricedQuote struct {
	Quote
	decimal float64
	implied float64
}

// pricedPair is the best available combination across two sides.
type pricedPair struct {
	legs [2]pricedQuote
	sum  float64
}

// groupTwoWay partitions quotes into the two-way markets the detectors price:
// moneyline home vs away, and total over vs under at the same line. Draw
// outcomes and spreads are not paired. Events keep their first-seen order and
// total lines are visited in ascending order.
func groupTwoWay(quotes []Quote) []twoWay {
	type eventGroup struct {
		first Quote
		byMkt map[odds.MarketType]map[string][]Quote
	}
	events := make(map[string]*eventGroup)
	order := make([]string, 0)
	for _, q := range quotes {
		if q.Market != odds.MarketMoneyline && q.Market != odds.MarketTotal {
			continue
		}
		ev, ok := events[q.EventID]
		if !ok {
			ev = &eventGroup{first: q, byMkt: make(map[odds.MarketType]map[string][]Quote)}
			events[q.EventID] = ev
			order = append(order, q.EventID)
		}
		if ev.byMkt[q.Market] == nil {
			ev.byMkt[q.Market] = make(map[string][]Quote)
		}
		ev.byMkt[q.Market][q.Outcome] = append(ev.byMkt[q.Market][q.Outcome], q)
	}

	out := make([]twoWay, 0)
	for _, id := range order {
		ev := events[id]
		base := opportunity.Matchup{
			Sport:      ev.first.Sport,
			EventID:    ev.first.EventID,
			HomeTeam:   ev.first.HomeTeam,
			AwayTeam:   ev.first.AwayTeam,
			EventStart: ev.first.EventStart,
		}

		if ml, ok := ev.byMkt[odds.MarketMoneyline]; ok {
			home, away := ml[odds.OutcomeHome], ml[odds.OutcomeAway]
			if len(home) > 0 && len(away) > 0 {
				m := base
				m.Market = odds.MarketMoneyline
				out = append(out, twoWay{
					matchup: m,
					labels:  [2]string{labelOr(base.HomeTeam, odds.OutcomeHome), labelOr(base.AwayTeam, odds.OutcomeAway)},
					sides:   [2][]Quote{home, away},
				})
			}
		}

		if tot, ok := ev.byMkt[odds.MarketTotal]; ok {
			overs := byLine(tot[odds.OutcomeOver])
			unders := byLine(tot[odds.OutcomeUnder])
			lines := make([]float64, 0, len(overs))
			for l := range overs {
				if _, ok := unders[l]; ok {
					lines = append(lines, l)
				}
			}
			sort.Float64s(lines)
			for _, l := range lines {
				line := l
				m := base
				m.Market = odds.MarketTotal
				m.Line = &line
				label := opportunity.FormatLine(line)
				out = append(out, twoWay{
					matchup: m,
					labels:  [2]string{fmt.Sprintf("Over %s", label), fmt.Sprintf("Under %s", label)},
					sides:   [2][]Quote{overs[l], unders[l]},
				})
			}
		}
	}
	return out
}

// byLine buckets total quotes by line value. Quotes without a line cannot be
// paired and are dropped.
func byLine(quotes []Quote) map[float64][]Quote {
	out := make(map[float64][]Quote)
	for _, q := range quotes {
		if q.Line == nil {
			continue
		}
		out[*q.Line] = append(out[*q.Line], q)
	}
	return out
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

// bestQuote returns the highest American price on a side, skipping one book
// when exclude is set. The first quote wins a tie.
func bestQuote(quotes []Quote, exclude string) (pricedQuote, bool) {
	var best Quote
	found := false
	for _, q := range quotes {
		if exclude != "" && q.Book == exclude {
			continue
		}
		if !found || q.Price > best.Price {
			best = q
			found = true
		}
	}
	if !found {
		return pricedQuote{}, false
	}
	dec, err := odds.AmericanToDecimal(best.Price)
	if err != nil {
		return pricedQuote{}, false
	}
	return pricedQuote{Quote: best, decimal: dec, implied: 1 / dec}, true
}

// bestPair picks the best price per side. Both legs must come from different
// books; when the best prices share a book, the cheaper of the two
// next-best combinations is used instead.
func bestPair(a, b []Quote) (pricedPair, bool) {
	bestA, okA := bestQuote(a, "")
	bestB, okB := bestQuote(b, "")
	if !okA || !okB {
		return pricedPair{}, false
	}
	if bestA.Book != bestB.Book {
		return newPricedPair(bestA, bestB), true
	}

	var (
		pick  pricedPair
		found bool
	)
	if altB, ok := bestQuote(b, bestA.Book); ok {
		pick, found = newPricedPair(bestA, altB), true
	}
	if altA, ok := bestQuote(a, bestB.Book); ok {
		if cand := newPricedPair(altA, bestB); !found || cand.sum < pick.sum {
			pick, found = cand, true
		}
	}
	return pick, found
}

func newPricedPair(a, b pricedQuote) pricedPair {
	return pricedPair{legs: [2]pricedQuote{a, b}, sum: a.implied + b.implied}
}

func (p pricedPair) observedAt() time.Time {
	return older(p.legs[0].UpdatedAt, p.legs[1].UpdatedAt)
}
