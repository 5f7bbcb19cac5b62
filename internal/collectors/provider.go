package collectors

import (
	"context"
	"strings"

	"github.com/hetulpatel/hedj/internal/odds"
)

// Provider is implemented by every odds source. Each provider fetches,
// normalizes and returns observations for the requested sports; an empty
// sports list means all sports.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, sports []string) ([]odds.Observation, error)
}

// Acker is implemented by providers whose input must be committed once the
// fetched observations are safely appended to history.
type Acker interface {
	Ack(ctx context.Context) error
}

// sportFilter matches sports case-insensitively. An empty filter matches all.
type sportFilter map[string]struct{}

func newSportFilter(sports []string) sportFilter {
	f := make(sportFilter, len(sports))
	for _, s := range sports {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f[s] = struct{}{}
		}
	}
	return f
}

func (f sportFilter) keep(sport string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[strings.ToLower(sport)]
	return ok
}

func (f sportFilter) apply(rows []odds.Observation) []odds.Observation {
	if len(f) == 0 {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if f.keep(r.Sport) {
			out = append(out, r)
		}
	}
	return out
}
