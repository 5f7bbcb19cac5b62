package collectors

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

// Wire shapes accepted from providers. A record with a markets array is a
// nested event; anything else is a single flat observation.
type eventJSON struct {
	EventID   string       `json:"event_id"`
	Sport     string       `json:"sport"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	StartTime *time.Time   `json:"start_time"`
	Markets   []marketJSON `json:"markets"`
}

type marketJSON struct {
	MarketType string        `json:"market_type"`
	Book       string        `json:"book"`
	Outcomes   []outcomeJSON `json:"outcomes"`
}

type outcomeJSON struct {
	Outcome string   `json:"outcome"`
	Price   int      `json:"price"`
	Line    *float64 `json:"line"`
}

type observationJSON struct {
	Timestamp  *time.Time `json:"timestamp_utc"`
	Book       string     `json:"book"`
	Sport      string     `json:"sport"`
	EventID    string     `json:"event_id"`
	EventStart *time.Time `json:"event_start_time"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	MarketType string     `json:"market_type"`
	Outcome    string     `json:"outcome"`
	Price      int        `json:"price"`
	Line       *float64   `json:"line"`
}

// DecodeRecord turns one provider record into observations. Rows without a
// timestamp are stamped with fetchedAt.
func DecodeRecord(raw []byte, fetchedAt time.Time) ([]odds.Observation, error) {
	var shape struct {
		Markets json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if len(shape.Markets) > 0 && string(shape.Markets) != "null" {
		var ev eventJSON
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		return odds.Flatten([]odds.Event{ev.toEvent()}, fetchedAt), nil
	}

	var o observationJSON
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}
	return []odds.Observation{o.toObservation(fetchedAt)}, nil
}

func (e eventJSON) toEvent() odds.Event {
	ev := odds.Event{
		EventID:  e.EventID,
		Sport:    e.Sport,
		HomeTeam: e.HomeTeam,
		AwayTeam: e.AwayTeam,
		Markets:  make([]odds.Market, 0, len(e.Markets)),
	}
	if e.StartTime != nil {
		ev.Start = e.StartTime.UTC()
	}
	for _, m := range e.Markets {
		mk := odds.Market{Type: odds.MarketType(m.MarketType), Book: m.Book}
		for _, o := range m.Outcomes {
			mk.Outcomes = append(mk.Outcomes, odds.OutcomePrice{Outcome: o.Outcome, Price: o.Price, Line: o.Line})
		}
		ev.Markets = append(ev.Markets, mk)
	}
	return ev
}

func (o observationJSON) toObservation(fetchedAt time.Time) odds.Observation {
	out := odds.Observation{
		Timestamp: fetchedAt.UTC(),
		Book:      odds.NormalizeBook(o.Book),
		Sport:     o.Sport,
		EventID:   o.EventID,
		HomeTeam:  o.HomeTeam,
		AwayTeam:  o.AwayTeam,
		Market:    odds.MarketType(o.MarketType),
		Outcome:   o.Outcome,
		Price:     o.Price,
		Line:      o.Line,
	}
	if o.Timestamp != nil && !o.Timestamp.IsZero() {
		out.Timestamp = o.Timestamp.UTC()
	}
	if o.EventStart != nil {
		out.EventStart = o.EventStart.UTC()
	}
	return out
}
