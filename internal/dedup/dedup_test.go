package dedup_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/hedj/internal/dedup"
	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func arbOpp(event, bookA, bookB string) opportunity.Opportunity {
	return opportunity.NewArbitrage(opportunity.Arbitrage{
		Matchup: opportunity.Matchup{Sport: "NBA", EventID: event, Market: odds.MarketMoneyline},
		Legs: [2]opportunity.Leg{
			{Side: "Lakers", Book: bookA, Price: -150},
			{Side: "Celtics", Book: bookB, Price: 160},
		},
		ROIPercent: 1.56,
	})
}

func TestFileStore_SuppressesWithinRetention(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alerts", "sent_alerts.json")
	opps := []opportunity.Opportunity{arbOpp("e1", "fanduel", "betmgm")}

	run := func(now time.Time) int {
		store, err := dedup.OpenFile(path, dedup.DefaultRetention, now)
		require.NoError(t, err)
		fresh, _, err := dedup.Filter(ctx, store, opps, now)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx))
		return len(fresh)
	}

	assert.Equal(t, 1, run(t0))
	assert.Equal(t, 0, run(t0.Add(time.Hour)))
	assert.Equal(t, 0, run(t0.Add(24*time.Hour)), "exactly at the window edge still suppressed")
	assert.Equal(t, 1, run(t0.Add(24*time.Hour+time.Second)))
}

func TestFileStore_BookOrderIndependent(t *testing.T) {
	ctx := context.Background()
	store, err := dedup.OpenFile(filepath.Join(t.TempDir(), "a.json"), 0, t0)
	require.NoError(t, err)

	fresh, suppressed, err := dedup.Filter(ctx, store, []opportunity.Opportunity{
		arbOpp("e1", "fanduel", "betmgm"),
		arbOpp("e1", "betmgm", "fanduel"),
		arbOpp("e2", "fanduel", "betmgm"),
	}, t0)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 1, suppressed)
}

func TestFileStore_SaveIsUnconditionalAndGarbageCollects(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.json")
	stale := t0.Add(-48 * time.Hour).Format(time.RFC3339)
	recent := t0.Add(-time.Hour).Format(time.RFC3339)
	raw, err := json.Marshal(map[string]string{"old": stale, "recent": recent, "junk": "yesterday"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	store, err := dedup.OpenFile(path, dedup.DefaultRetention, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"recent"}, store.Keys())

	// nothing marked this run, the pruned map is still written back
	require.NoError(t, store.Save(ctx))

	var saved map[string]string
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, map[string]string{"recent": recent}, saved)
}

func TestFileStore_MarkKeepsFirstAlertTime(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.json")
	store, err := dedup.OpenFile(path, 0, t0)
	require.NoError(t, err)

	require.NoError(t, store.Mark(ctx, "k", t0))
	require.NoError(t, store.Mark(ctx, "k", t0.Add(time.Hour)))
	require.NoError(t, store.Save(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), t0.Format(time.RFC3339)))
}

func TestFileStore_SaveKeepsSubsecondPrecision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.json")
	at := t0.Add(123456789 * time.Nanosecond)

	store, err := dedup.OpenFile(path, dedup.DefaultRetention, at)
	require.NoError(t, err)
	require.NoError(t, store.Mark(ctx, "k", at))
	require.NoError(t, store.Save(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), at.Format(time.RFC3339Nano))

	// exactly one retention window later the entry is still live
	reopened, err := dedup.OpenFile(path, dedup.DefaultRetention, at.Add(dedup.DefaultRetention))
	require.NoError(t, err)
	isNew, err := reopened.IsNew(ctx, "k")
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestFileStore_CorruptFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := dedup.OpenFile(path, 0, t0)
	assert.Error(t, err)
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	store, err := dedup.OpenFile(filepath.Join(t.TempDir(), "none.json"), 0, t0)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
	isNew, err := store.IsNew(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "hedj:test:" + time.Now().Format("150405.000000")
	store, err := dedup.NewRedisStore(dedup.RedisOptions{Addr: addr, Prefix: prefix, Retention: time.Minute})
	require.NoError(t, err)
	defer store.Close()

	opps := []opportunity.Opportunity{arbOpp("e1", "fanduel", "betmgm")}
	fresh, _, err := dedup.Filter(ctx, store, opps, t0)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	require.NoError(t, store.Save(ctx))

	fresh, suppressed, err := dedup.Filter(ctx, store, opps, t0)
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.Equal(t, 1, suppressed)
}

func TestReadOnly_DoesNotPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.json")
	store, err := dedup.OpenFile(path, 0, t0)
	require.NoError(t, err)

	ro := dedup.ReadOnly(store)
	opps := []opportunity.Opportunity{arbOpp("e1", "fanduel", "betmgm")}
	fresh, _, err := dedup.Filter(ctx, ro, opps, t0)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	require.NoError(t, ro.Save(ctx))

	assert.Empty(t, store.Keys())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
