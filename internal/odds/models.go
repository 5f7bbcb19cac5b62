package odds

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MarketType identifies the kind of market an observation belongs to.
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
	MarketFutures   MarketType = "futures"
)

// Outcome labels for two-way and three-way markets. Futures outcomes carry the
// selection name instead.
const (
	OutcomeHome  = "home"
	OutcomeAway  = "away"
	OutcomeDraw  = "draw"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
)

var (
	ErrInvalidPrice  = errors.New("invalid american odds")
	ErrUnknownMarket = errors.New("unknown market type")
	ErrMissingField  = errors.New("missing required field")
)

// ParseMarketType maps a stored market label onto a MarketType.
func ParseMarketType(raw string) (MarketType, error) {
	switch MarketType(strings.ToLower(strings.TrimSpace(raw))) {
	case MarketMoneyline:
		return MarketMoneyline, nil
	case MarketSpread:
		return MarketSpread, nil
	case MarketTotal:
		return MarketTotal, nil
	case MarketFutures:
		return MarketFutures, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMarket, raw)
}

// NormalizeBook lower-cases a sportsbook identifier. Books compare case-insensitively.
func NormalizeBook(book string) string {
	return strings.ToLower(strings.TrimSpace(book))
}

// Observation is one point-in-time price for one outcome at one book.
//
// For futures markets HomeTeam holds the futures market title (e.g. "NBA
// Championship Winner"), AwayTeam is empty, Outcome is the selection name and
// Line is always nil.
type Observation struct {
	Timestamp  time.Time  `json:"timestamp_utc"`
	Book       string     `json:"book"`
	Sport      string     `json:"sport"`
	EventID    string     `json:"event_id"`
	EventStart time.Time  `json:"event_start_time,omitempty"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	Market     MarketType `json:"market_type"`
	Outcome    string     `json:"outcome"`
	Price      int        `json:"price"`
	Line       *float64   `json:"line,omitempty"`
}

// Key returns the grouping key used by the movement aggregator.
func (o Observation) Key() Key {
	return Key{
		Book:    o.Book,
		Sport:   o.Sport,
		EventID: o.EventID,
		Market:  o.Market,
		Outcome: o.Outcome,
	}
}

// Validate reports the first reason the observation cannot be stored.
func (o Observation) Validate() error {
	switch {
	case o.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	case o.Book == "":
		return fmt.Errorf("%w: book", ErrMissingField)
	case o.EventID == "":
		return fmt.Errorf("%w: event_id", ErrMissingField)
	case o.Outcome == "":
		return fmt.Errorf("%w: outcome", ErrMissingField)
	}
	if _, err := ParseMarketType(string(o.Market)); err != nil {
		return err
	}
	if !IsValidAmerican(o.Price) {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, o.Price)
	}
	return nil
}

// Key identifies one movement series: (book, sport, event, market, outcome).
type Key struct {
	Book    string
	Sport   string
	EventID string
	Market  MarketType
	Outcome string
}

// Movement is the latest-snapshot row for one Key.
type Movement struct {
	Book          string
	Sport         string
	EventID       string
	EventStart    time.Time
	HomeTeam      string
	AwayTeam      string
	Market        MarketType
	Outcome       string
	OpeningPrice  int
	CurrentPrice  int
	PriceMovement int
	OpeningLine   *float64
	CurrentLine   *float64
	LineMovement  *float64
	LastUpdated   time.Time
}

// Event is the nested shape some providers produce before flattening.
type Event struct {
	EventID  string
	Sport    string
	HomeTeam string
	AwayTeam string
	Start    time.Time
	Markets  []Market
}

// Market is one book's prices for one market of an event.
type Market struct {
	Type     MarketType
	Book     string
	Outcomes []OutcomePrice
}

// OutcomePrice is a single priced outcome inside a Market.
type OutcomePrice struct {
	Outcome string
	Price   int
	Line    *float64
}

// Flatten turns nested events into observations stamped with the same fetch time.
func Flatten(events []Event, ts time.Time) []Observation {
	ts = ts.UTC()
	out := make([]Observation, 0)
	for _, ev := range events {
		for _, m := range ev.Markets {
			for _, o := range m.Outcomes {
				out = append(out, Observation{
					Timestamp:  ts,
					Book:       NormalizeBook(m.Book),
					Sport:      ev.Sport,
					EventID:    ev.EventID,
					EventStart: ev.Start,
					HomeTeam:   ev.HomeTeam,
					AwayTeam:   ev.AwayTeam,
					Market:     m.Type,
					Outcome:    o.Outcome,
					Price:      o.Price,
					Line:       o.Line,
				})
			}
		}
	}
	return out
}
