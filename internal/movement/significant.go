package movement

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

// Thresholds are the minimum absolute moves, opening to current, that make a
// movement worth surfacing. Spreads and totals are judged on the line,
// moneylines on the price.
type Thresholds struct {
	SpreadPoints   float64
	TotalPoints    float64
	MoneylineCents int
}

func DefaultThresholds() Thresholds {
	return Thresholds{SpreadPoints: 2.5, TotalPoints: 3.0, MoneylineCents: 30}
}

// Mover is a significant line or price move on one book.
type Mover struct {
	Sport         string          `json:"sport"`
	EventID       string          `json:"event_id"`
	HomeTeam      string          `json:"home_team"`
	AwayTeam      string          `json:"away_team"`
	EventStart    time.Time       `json:"event_start_time"`
	Book          string          `json:"book"`
	Market        odds.MarketType `json:"market"`
	Outcome       string          `json:"outcome"`
	OpeningPrice  int             `json:"opening_price"`
	CurrentPrice  int             `json:"current_price"`
	PriceMovement int             `json:"price_movement"`
	OpeningLine   *float64        `json:"opening_line,omitempty"`
	CurrentLine   *float64        `json:"current_line,omitempty"`
	LineMovement  *float64        `json:"line_movement,omitempty"`
	Description   string          `json:"description"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// Significant returns the movements whose move reaches the threshold for
// their market, in input order. Spread and total rows without a line
// movement and futures rows never qualify.
func Significant(movements []odds.Movement, th Thresholds) []Mover {
	out := make([]Mover, 0)
	for _, m := range movements {
		desc, ok := describe(m, th)
		if !ok {
			continue
		}
		out = append(out, Mover{
			Sport:         m.Sport,
			EventID:       m.EventID,
			HomeTeam:      m.HomeTeam,
			AwayTeam:      m.AwayTeam,
			EventStart:    m.EventStart,
			Book:          m.Book,
			Market:        m.Market,
			Outcome:       m.Outcome,
			OpeningPrice:  m.OpeningPrice,
			CurrentPrice:  m.CurrentPrice,
			PriceMovement: m.PriceMovement,
			OpeningLine:   copyLine(m.OpeningLine),
			CurrentLine:   copyLine(m.CurrentLine),
			LineMovement:  copyLine(m.LineMovement),
			Description:   desc,
			LastUpdated:   m.LastUpdated,
		})
	}
	return out
}

func describe(m odds.Movement, th Thresholds) (string, bool) {
	switch m.Market {
	case odds.MarketSpread:
		if m.LineMovement == nil || m.CurrentLine == nil || math.Abs(*m.LineMovement) < th.SpreadPoints {
			return "", false
		}
		return fmt.Sprintf("spread moved %s to %s", signed(*m.LineMovement), formatLine(*m.CurrentLine)), true
	case odds.MarketTotal:
		if m.LineMovement == nil || m.CurrentLine == nil || math.Abs(*m.LineMovement) < th.TotalPoints {
			return "", false
		}
		dir := "up"
		if *m.LineMovement < 0 {
			dir = "down"
		}
		return fmt.Sprintf("total %s %s to %s", dir, formatLine(math.Abs(*m.LineMovement)), formatLine(*m.CurrentLine)), true
	case odds.MarketMoneyline:
		if m.PriceMovement == 0 || abs(m.PriceMovement) < th.MoneylineCents {
			return "", false
		}
		// a lower American price pays less: the outcome got shorter
		dir := "lengthened"
		if m.PriceMovement < 0 {
			dir = "shortened"
		}
		return fmt.Sprintf("moneyline %s %s to %s", dir, odds.FormatAmerican(m.OpeningPrice), odds.FormatAmerican(m.CurrentPrice)), true
	}
	return "", false
}

// Headline is a one-line description for logs and the movers command.
func (m Mover) Headline() string {
	return fmt.Sprintf("%s %s @ %s %s (%s): %s", m.Sport, m.AwayTeam, m.HomeTeam, m.Outcome, m.Book, m.Description)
}

func signed(v float64) string {
	if v > 0 {
		return "+" + formatLine(v)
	}
	return formatLine(v)
}

func formatLine(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
