package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
	"github.com/hetulpatel/hedj/internal/storage/sqlite"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "hedj.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateTables(context.Background()))
	return s
}

func observations() []odds.Observation {
	line := 220.5
	return []odds.Observation{
		{
			Timestamp: t0.Add(time.Hour), Book: "fanduel", Sport: "NBA", EventID: "e1",
			EventStart: t0.Add(5 * time.Hour), HomeTeam: "Lakers", AwayTeam: "Celtics",
			Market: odds.MarketMoneyline, Outcome: odds.OutcomeHome, Price: -150,
		},
		{
			Timestamp: t0, Book: "betmgm", Sport: "NBA", EventID: "e1",
			EventStart: t0.Add(5 * time.Hour), HomeTeam: "Lakers", AwayTeam: "Celtics",
			Market: odds.MarketTotal, Outcome: odds.OutcomeOver, Price: -110, Line: &line,
		},
		{
			Timestamp: t0.Add(500 * time.Millisecond), Book: "caesars", Sport: "NBA", EventID: "nba_championship",
			HomeTeam: "NBA Championship Winner", Market: odds.MarketFutures, Outcome: "Boston Celtics", Price: 350,
		},
	}
}

func TestStore_AppendLoadKeepsArrivalOrder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	n, err := s.Append(ctx, observations())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, observations(), got)
}

func TestStore_LoadEmpty(t *testing.T) {
	got, err := openStore(t).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	_, err := s.Append(ctx, observations())
	require.NoError(t, err)

	// sub-second timestamps must compare in time order
	removed, err := s.Cleanup(ctx, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fanduel", got[0].Book)
}

func TestStore_InsertAndListOpportunities(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	opps := []opportunity.Opportunity{
		opportunity.NewArbitrage(opportunity.Arbitrage{
			Matchup: opportunity.Matchup{Sport: "NBA", EventID: "e1", Market: odds.MarketMoneyline},
			Legs: [2]opportunity.Leg{
				{Side: "Lakers", Book: "fanduel", Price: -150, Stake: 60.94},
				{Side: "Celtics", Book: "betmgm", Price: 160, Stake: 39.06},
			},
			ROIPercent: 1.56,
			Profit:     1.56,
			TotalStake: 100,
			ObservedAt: t0,
		}),
		opportunity.NewFuturesValue(opportunity.FuturesValue{
			Sport: "NBA", MarketTitle: "NBA Championship Winner", Selection: "Boston Celtics",
			BestBook: "fanduel", BestPrice: 150, WorstBook: "betmgm", WorstPrice: 110, EdgePercent: 7.62,
		}),
	}
	require.NoError(t, s.InsertOpportunities(ctx, "run-1", opps, t0.Add(time.Minute)))
	require.NoError(t, s.InsertOpportunities(ctx, "run-2", nil, t0))

	rows, err := s.ListOpportunities(ctx, t0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, opportunity.KindArbitrage, rows[0].Kind)
	assert.Equal(t, opps[0].Key(), rows[0].Key)
	assert.Equal(t, 1.56, rows[0].Metric)
	assert.Equal(t, t0.Add(time.Minute), rows[0].DetectedAt)
	assert.Equal(t, opportunity.KindFuturesValue, rows[1].Kind)

	rows, err = s.ListOpportunities(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_ClearTables(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	_, err := s.Append(ctx, observations())
	require.NoError(t, err)
	require.NoError(t, s.ClearTables(ctx))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
