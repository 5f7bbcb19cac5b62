package opportunity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key is the stable dedup key for an opportunity. The book pair is sorted so
// that A-vs-B and B-vs-A collapse onto one key. The line is part of the key
// whenever the pair was priced at a specific line, so different totals (or
// spreads) at the same event stay distinct.
func (o Opportunity) Key() string {
	switch {
	case o.Arbitrage != nil:
		return pairKey(KindArbitrage, o.Arbitrage.Matchup, o.Arbitrage.Legs)
	case o.TightLine != nil:
		return pairKey(KindTightLine, o.TightLine.Matchup, o.TightLine.Legs)
	case o.FuturesValue != nil:
		return strings.Join([]string{string(KindFuturesValue), o.FuturesValue.Sport, o.FuturesValue.Selection}, "|")
	}
	return ""
}

func pairKey(kind Kind, m Matchup, legs [2]Leg) string {
	books := []string{legs[0].Book, legs[1].Book}
	sort.Strings(books)
	parts := []string{string(kind), m.EventID, string(m.Market)}
	if m.Line != nil {
		parts = append(parts, FormatLine(*m.Line))
	}
	parts = append(parts, fmt.Sprintf("%s|%s", books[0], books[1]))
	return strings.Join(parts, "|")
}

// FormatLine renders a line value with the shortest exact representation.
func FormatLine(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
