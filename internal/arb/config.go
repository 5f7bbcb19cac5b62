package arb

import (
	"time"

	"github.com/hetulpatel/hedj/internal/odds"
)

// Config holds the thresholds shared by the detectors.
type Config struct {
	Books BookSet

	MinROIPercent float64
	MaxROIPercent float64
	TotalStake    float64

	TightMaxImpliedSum float64
	TightWindow        time.Duration

	FuturesMinEdgePercent float64
}

// DefaultConfig mirrors the thresholds the alert jobs ran with in production.
func DefaultConfig() Config {
	return Config{
		Books:                 NewBookSet([]string{"fanduel", "draftkings", "betmgm", "caesars", "pointsbetus", "betrivers", "espnbet"}),
		MinROIPercent:         0.5,
		MaxROIPercent:         15,
		TotalStake:            100,
		TightMaxImpliedSum:    1.02,
		TightWindow:           24 * time.Hour,
		FuturesMinEdgePercent: 5,
	}
}

// BookSet is an allow-list of lower-cased book identifiers. An empty set
// allows every book.
type BookSet map[string]struct{}

func NewBookSet(books []string) BookSet {
	set := make(BookSet, len(books))
	for _, b := range books {
		if b = odds.NormalizeBook(b); b != "" {
			set[b] = struct{}{}
		}
	}
	return set
}

func (s BookSet) Allows(book string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[odds.NormalizeBook(book)]
	return ok
}
