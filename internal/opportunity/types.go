package opportunity

import (
	"fmt"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

type Kind string

const (
	KindArbitrage    Kind = "arbitrage"
	KindTightLine    Kind = "tight_line"
	KindFuturesValue Kind = "futures_value"
)

// Leg is one side of a two-way opportunity. Stake is zero for tight lines.
type Leg struct {
	Side  string  `json:"side"`
	Book  string  `json:"book"`
	Price int     `json:"price"`
	Stake float64 `json:"stake,omitempty"`
}

// Matchup carries the event metadata shared by arbitrage and tight-line records.
type Matchup struct {
	Sport      string          `json:"sport"`
	EventID    string          `json:"event_id"`
	HomeTeam   string          `json:"home_team"`
	AwayTeam   string          `json:"away_team"`
	EventStart time.Time       `json:"event_start_time"`
	Market     odds.MarketType `json:"market"`
	Line       *float64        `json:"line,omitempty"`
}

type Arbitrage struct {
	Matchup
	Legs       [2]Leg    `json:"legs"`
	ROIPercent float64   `json:"roi_percent"`
	Profit     float64   `json:"profit"`
	TotalStake float64   `json:"total_stake"`
	ObservedAt time.Time `json:"observed_at"`
}

type TightLine struct {
	Matchup
	Legs                  [2]Leg    `json:"legs"`
	ImpliedProbabilitySum float64   `json:"implied_probability_sum"`
	GapToArbitragePercent float64   `json:"gap_to_arbitrage_percent"`
	ObservedAt            time.Time `json:"observed_at"`
}

type FuturesValue struct {
	Sport       string    `json:"sport"`
	MarketTitle string    `json:"market_title"`
	Selection   string    `json:"selection"`
	BestBook    string    `json:"best_book"`
	BestPrice   int       `json:"best_price"`
	WorstBook   string    `json:"worst_book"`
	WorstPrice  int       `json:"worst_price"`
	EdgePercent float64   `json:"edge_percent"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Opportunity is a tagged union: exactly one of the variant pointers matching
// Kind is set.
type Opportunity struct {
	Kind         Kind          `json:"kind"`
	Arbitrage    *Arbitrage    `json:"arbitrage,omitempty"`
	TightLine    *TightLine    `json:"tight_line,omitempty"`
	FuturesValue *FuturesValue `json:"futures_value,omitempty"`
}

func NewArbitrage(a Arbitrage) Opportunity {
	return Opportunity{Kind: KindArbitrage, Arbitrage: &a}
}

func NewTightLine(t TightLine) Opportunity {
	return Opportunity{Kind: KindTightLine, TightLine: &t}
}

func NewFuturesValue(f FuturesValue) Opportunity {
	return Opportunity{Kind: KindFuturesValue, FuturesValue: &f}
}

// ObservedAt is the timestamp of the oldest quote backing the opportunity.
func (o Opportunity) ObservedAt() time.Time {
	switch o.Kind {
	case KindArbitrage:
		if o.Arbitrage != nil {
			return o.Arbitrage.ObservedAt
		}
	case KindTightLine:
		if o.TightLine != nil {
			return o.TightLine.ObservedAt
		}
	case KindFuturesValue:
		if o.FuturesValue != nil {
			return o.FuturesValue.ObservedAt
		}
	}
	return time.Time{}
}

// Headline is a one-line description for logs.
func (o Opportunity) Headline() string {
	switch {
	case o.Arbitrage != nil:
		a := o.Arbitrage
		return fmt.Sprintf("%.2f%% ARB %s @ %s (%s) %s %s@%s / %s %s@%s",
			a.ROIPercent, a.AwayTeam, a.HomeTeam, a.Market,
			a.Legs[0].Side, a.Legs[0].Book, odds.FormatAmerican(a.Legs[0].Price),
			a.Legs[1].Side, a.Legs[1].Book, odds.FormatAmerican(a.Legs[1].Price))
	case o.TightLine != nil:
		t := o.TightLine
		return fmt.Sprintf("%.2f%% from arb %s @ %s (%s) %s %s@%s / %s %s@%s",
			t.GapToArbitragePercent, t.AwayTeam, t.HomeTeam, t.Market,
			t.Legs[0].Side, t.Legs[0].Book, odds.FormatAmerican(t.Legs[0].Price),
			t.Legs[1].Side, t.Legs[1].Book, odds.FormatAmerican(t.Legs[1].Price))
	case o.FuturesValue != nil:
		f := o.FuturesValue
		return fmt.Sprintf("%.2f%% edge %s %s: %s@%s vs %s@%s",
			f.EdgePercent, f.Sport, f.Selection,
			f.BestBook, odds.FormatAmerican(f.BestPrice),
			f.WorstBook, odds.FormatAmerican(f.WorstPrice))
	}
	return string(o.Kind)
}

// Metric is the figure each kind is ranked by: ROI for arbitrage, gap to
// arbitrage for tight lines, edge for futures.
func (o Opportunity) Metric() float64 {
	switch {
	case o.Arbitrage != nil:
		return o.Arbitrage.ROIPercent
	case o.TightLine != nil:
		return o.TightLine.GapToArbitragePercent
	case o.FuturesValue != nil:
		return o.FuturesValue.EdgePercent
	}
	return 0
}

// Where returns sport, event and market labels. Futures report the market
// title as the event.
func (o Opportunity) Where() (sport, event, market string) {
	switch {
	case o.Arbitrage != nil:
		return o.Arbitrage.Sport, o.Arbitrage.EventID, string(o.Arbitrage.Market)
	case o.TightLine != nil:
		return o.TightLine.Sport, o.TightLine.EventID, string(o.TightLine.Market)
	case o.FuturesValue != nil:
		return o.FuturesValue.Sport, o.FuturesValue.MarketTitle, string(odds.MarketFutures)
	}
	return "", "", ""
}
