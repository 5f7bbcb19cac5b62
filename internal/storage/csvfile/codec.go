package csvfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

// HistoryHeader is the column order of the history file.
var HistoryHeader = []string{
	"timestamp_utc",
	"book",
	"sport",
	"event_id",
	"event_start_time",
	"home_team",
	"away_team",
	"market_type",
	"outcome",
	"price",
	"line",
}

// LatestHeader is the column order of the latest snapshot file.
var LatestHeader = []string{
	"book",
	"sport",
	"event_id",
	"event_start_time",
	"home_team",
	"away_team",
	"market_type",
	"outcome",
	"opening_price",
	"current_price",
	"price_movement",
	"opening_line",
	"current_line",
	"line_movement",
	"last_updated",
}

var errBadTimestamp = errors.New("unparsable timestamp")

// Accepted timestamp layouts. Naive timestamps are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", errBadTimestamp)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, raw)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseLine treats an empty or unparsable value as no line.
func parseLine(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func formatLine(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parsePrice(raw string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", odds.ErrInvalidPrice, raw)
	}
	if !odds.IsValidAmerican(p) {
		return 0, fmt.Errorf("%w: %d", odds.ErrInvalidPrice, p)
	}
	return p, nil
}

// columns maps header names to their index in a record.
type columns map[string]int

func newColumns(header []string, required []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("header missing column %q", name)
		}
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func encodeObservation(o odds.Observation) []string {
	return []string{
		formatTime(o.Timestamp),
		o.Book,
		o.Sport,
		o.EventID,
		formatTime(o.EventStart),
		o.HomeTeam,
		o.AwayTeam,
		string(o.Market),
		o.Outcome,
		strconv.Itoa(o.Price),
		formatLine(o.Line),
	}
}

func decodeObservation(c columns, record []string) (odds.Observation, error) {
	ts, err := parseTime(c.get(record, "timestamp_utc"))
	if err != nil {
		return odds.Observation{}, err
	}
	market, err := odds.ParseMarketType(c.get(record, "market_type"))
	if err != nil {
		return odds.Observation{}, err
	}
	price, err := parsePrice(c.get(record, "price"))
	if err != nil {
		return odds.Observation{}, err
	}
	// an unparsable start is treated as unknown
	start, _ := parseTime(c.get(record, "event_start_time"))

	o := odds.Observation{
		Timestamp:  ts,
		Book:       odds.NormalizeBook(c.get(record, "book")),
		Sport:      c.get(record, "sport"),
		EventID:    c.get(record, "event_id"),
		EventStart: start,
		HomeTeam:   c.get(record, "home_team"),
		AwayTeam:   c.get(record, "away_team"),
		Market:     market,
		Outcome:    c.get(record, "outcome"),
		Price:      price,
		Line:       parseLine(c.get(record, "line")),
	}
	if err := o.Validate(); err != nil {
		return odds.Observation{}, err
	}
	return o, nil
}

func encodeMovement(m odds.Movement) []string {
	return []string{
		m.Book,
		m.Sport,
		m.EventID,
		formatTime(m.EventStart),
		m.HomeTeam,
		m.AwayTeam,
		string(m.Market),
		m.Outcome,
		strconv.Itoa(m.OpeningPrice),
		strconv.Itoa(m.CurrentPrice),
		strconv.Itoa(m.PriceMovement),
		formatLine(m.OpeningLine),
		formatLine(m.CurrentLine),
		formatLine(m.LineMovement),
		formatTime(m.LastUpdated),
	}
}

func decodeMovement(c columns, record []string) (odds.Movement, error) {
	market, err := odds.ParseMarketType(c.get(record, "market_type"))
	if err != nil {
		return odds.Movement{}, err
	}
	opening, err := parsePrice(c.get(record, "opening_price"))
	if err != nil {
		return odds.Movement{}, err
	}
	current, err := parsePrice(c.get(record, "current_price"))
	if err != nil {
		return odds.Movement{}, err
	}
	updated, err := parseTime(c.get(record, "last_updated"))
	if err != nil {
		return odds.Movement{}, err
	}
	start, _ := parseTime(c.get(record, "event_start_time"))

	m := odds.Movement{
		Book:          odds.NormalizeBook(c.get(record, "book")),
		Sport:         c.get(record, "sport"),
		EventID:       c.get(record, "event_id"),
		EventStart:    start,
		HomeTeam:      c.get(record, "home_team"),
		AwayTeam:      c.get(record, "away_team"),
		Market:        market,
		Outcome:       c.get(record, "outcome"),
		OpeningPrice:  opening,
		CurrentPrice:  current,
		PriceMovement: current - opening,
		OpeningLine:   parseLine(c.get(record, "opening_line")),
		CurrentLine:   parseLine(c.get(record, "current_line")),
		LastUpdated:   updated,
	}
	if m.OpeningLine != nil && m.CurrentLine != nil {
		delta := *m.CurrentLine - *m.OpeningLine
		m.LineMovement = &delta
	}
	return m, nil
}

// rejectReason classifies a decode error for the rejected-rows metric.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, odds.ErrInvalidPrice):
		return "price"
	case errors.Is(err, errBadTimestamp):
		return "timestamp"
	case errors.Is(err, odds.ErrUnknownMarket):
		return "market"
	case errors.Is(err, odds.ErrMissingField):
		return "missing_field"
	}
	return "parse"
}
