package arb

import (
	"sort"
	"time"

	"github.com/hetulpatel/hedj/internal/opportunity"
)

// FindArbitrage scans allowed books for events that have not started yet and
// returns every two-way combination whose best prices imply a total
// probability below 1 with an ROI inside [MinROIPercent, MaxROIPercent].
// Results are sorted by ROI, highest first.
func FindArbitrage(quotes []Quote, cfg Config, now time.Time) []opportunity.Opportunity {
	picture := eligible(quotes, cfg.Books, startsAfter(now))
	stake := cfg.TotalStake
	if stake <= 0 {
		stake = 100
	}

	type scored struct {
		opp opportunity.Opportunity
		roi float64
	}
	found := make([]scored, 0)
	for _, tw := range groupTwoWay(picture) {
		pair, ok := bestPair(tw.sides[0], tw.sides[1])
		if !ok || pair.sum >= 1 {
			continue
		}
		roi := (1/pair.sum - 1) * 100
		if roi < cfg.MinROIPercent || roi > cfg.MaxROIPercent {
			continue
		}

		stake1 := pair.legs[0].implied / pair.sum * stake
		stake2 := pair.legs[1].implied / pair.sum * stake
		profit := stake1*pair.legs[0].decimal - stake

		a := opportunity.Arbitrage{
			Matchup: tw.matchup,
			Legs: [2]opportunity.Leg{
				{Side: tw.labels[0], Book: pair.legs[0].Book, Price: pair.legs[0].Price, Stake: round(stake1, 2)},
				{Side: tw.labels[1], Book: pair.legs[1].Book, Price: pair.legs[1].Price, Stake: round(stake2, 2)},
			},
			ROIPercent: round(roi, 2),
			Profit:     round(profit, 2),
			TotalStake: stake,
			ObservedAt: pair.observedAt(),
		}
		found = append(found, scored{opp: opportunity.NewArbitrage(a), roi: roi})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].roi > found[j].roi })
	out := make([]opportunity.Opportunity, len(found))
	for i, s := range found {
		out[i] = s.opp
	}
	return out
}
