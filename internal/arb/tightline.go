package arb

import (
	"sort"
	"time"

	"github.com/hetulpatel/hedj/internal/opportunity"
)

// FindTightLines returns near-arbitrage markets for events starting within
// cfg.TightWindow: the best prices imply a total strictly above 1 and at most
// cfg.TightMaxImpliedSum. Closest to a true arbitrage comes first.
func FindTightLines(quotes []Quote, cfg Config, now time.Time) []opportunity.Opportunity {
	window := cfg.TightWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	picture := eligible(quotes, cfg.Books, startsWithin(now, window))

	type scored struct {
		opp opportunity.Opportunity
		sum float64
	}
	found := make([]scored, 0)
	for _, tw := range groupTwoWay(picture) {
		pair, ok := bestPair(tw.sides[0], tw.sides[1])
		if !ok || pair.sum <= 1 || pair.sum > cfg.TightMaxImpliedSum {
			continue
		}
		tl := opportunity.TightLine{
			Matchup: tw.matchup,
			Legs: [2]opportunity.Leg{
				{Side: tw.labels[0], Book: pair.legs[0].Book, Price: pair.legs[0].Price},
				{Side: tw.labels[1], Book: pair.legs[1].Book, Price: pair.legs[1].Price},
			},
			ImpliedProbabilitySum: round(pair.sum, 4),
			GapToArbitragePercent: round((pair.sum-1)*100, 2),
			ObservedAt:            pair.observedAt(),
		}
		found = append(found, scored{opp: opportunity.NewTightLine(tl), sum: pair.sum})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].sum < found[j].sum })
	out := make([]opportunity.Opportunity, len(found))
	for i, s := range found {
		out[i] = s.opp
	}
	return out
}
