package dedup

import (
	"context"
	"time"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

// DefaultRetention is how long an alerted key stays suppressed.
const DefaultRetention = 24 * time.Hour

// Store remembers which opportunity keys were alerted recently.
//
// IsNew and Mark work on in-memory state for the current run; Save persists
// carried-over and newly marked entries and is called once at the end of
// every run, whether or not anything was marked.
type Store interface {
	IsNew(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, now time.Time) error
	Save(ctx context.Context) error
	Close() error
}

// Filter returns the opportunities whose key is new and marks each of them.
// Duplicates inside one batch collapse onto the first occurrence.
func Filter(ctx context.Context, store Store, opps []opportunity.Opportunity, now time.Time) ([]opportunity.Opportunity, int, error) {
	fresh := make([]opportunity.Opportunity, 0, len(opps))
	suppressed := 0
	for _, opp := range opps {
		key := opp.Key()
		isNew, err := store.IsNew(ctx, key)
		if err != nil {
			return nil, 0, err
		}
		if !isNew {
			suppressed++
			metrics.OpportunitiesSuppressed.WithLabelValues(string(opp.Kind)).Inc()
			logging.Debugf("[dedup] suppressed %s", key)
			continue
		}
		if err := store.Mark(ctx, key, now); err != nil {
			return nil, 0, err
		}
		fresh = append(fresh, opp)
	}
	return fresh, suppressed, nil
}

// ReadOnly wraps a store so lookups still suppress known keys but nothing
// is marked or saved. Used for dry runs.
func ReadOnly(s Store) Store {
	return readOnly{s}
}

type readOnly struct{ Store }

func (readOnly) Mark(context.Context, string, time.Time) error { return nil }
func (readOnly) Save(context.Context) error                    { return nil }
