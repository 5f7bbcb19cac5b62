package arb

import (
	"time"

	"github.com/hetulpatel/hedj/internal/opportunity"
)

// Detect runs the requested detectors in order over one price picture.
func Detect(kinds []opportunity.Kind, quotes []Quote, cfg Config, now time.Time) []opportunity.Opportunity {
	out := make([]opportunity.Opportunity, 0)
	for _, kind := range kinds {
		switch kind {
		case opportunity.KindArbitrage:
			out = append(out, FindArbitrage(quotes, cfg, now)...)
		case opportunity.KindTightLine:
			out = append(out, FindTightLines(quotes, cfg, now)...)
		case opportunity.KindFuturesValue:
			out = append(out, FindFuturesValue(quotes, cfg, now)...)
		}
	}
	return out
}
