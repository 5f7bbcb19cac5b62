package csvfile_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/hedj/internal/movement"
	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/storage/csvfile"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func sample() []odds.Observation {
	return []odds.Observation{
		{
			Timestamp: t0, Book: "fanduel", Sport: "NBA", EventID: "e1",
			EventStart: t0.Add(3 * time.Hour), HomeTeam: "Lakers", AwayTeam: "Celtics",
			Market: odds.MarketMoneyline, Outcome: odds.OutcomeHome, Price: -150,
		},
		{
			Timestamp: t0, Book: "betmgm", Sport: "NBA", EventID: "e1",
			EventStart: t0.Add(3 * time.Hour), HomeTeam: "Lakers", AwayTeam: "Celtics",
			Market: odds.MarketTotal, Outcome: odds.OutcomeOver, Price: -110, Line: ptr(220.5),
		},
		{
			Timestamp: t0.Add(time.Hour), Book: "caesars", Sport: "NBA", EventID: "nba_championship",
			HomeTeam: "NBA Championship Winner", Market: odds.MarketFutures, Outcome: "Boston Celtics", Price: 350,
		},
	}
}

func TestHistory_AppendThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history", "odds_history.csv")
	h := csvfile.NewHistory(path)

	n, err := h.Append(ctx, sample()[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = h.Append(ctx, sample()[2:])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "timestamp_utc"), "header written once")

	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestHistory_MissingFileIsEmpty(t *testing.T) {
	h := csvfile.NewHistory(filepath.Join(t.TempDir(), "nope.csv"))
	got, err := h.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory_UnreadableFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be cannot be read as CSV
	path := filepath.Join(dir, "history.csv")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := csvfile.NewHistory(path).Load(context.Background())
	assert.Error(t, err)
}

func TestHistory_MissingColumnIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp_utc,book\n2025-03-01T12:00:00Z,fanduel\n"), 0o644))

	_, err := csvfile.NewHistory(path).Load(context.Background())
	assert.Error(t, err)
}

func TestHistory_SkipsMalformedRows(t *testing.T) {
	content := strings.Join([]string{
		strings.Join(csvfile.HistoryHeader, ","),
		"2025-03-01T12:00:00+00:00,FanDuel,NBA,e1,2025-03-01T15:00:00+00:00,Lakers,Celtics,moneyline,home,-150,",
		"2025-03-01T12:00:00+00:00,betmgm,NBA,e1,,Lakers,Celtics,moneyline,away,-80,",
		"2025-03-01T12:00:00+00:00,betmgm,NBA,e1,,Lakers,Celtics,moneyline,away,abc,",
		"not-a-time,betmgm,NBA,e1,,Lakers,Celtics,moneyline,away,120,",
		"2025-03-01T12:00:00+00:00,betmgm,NBA,e1,,Lakers,Celtics,parlay,away,120,",
		"2025-03-01T12:00:00.123456,caesars,NBA,e1,,Lakers,Celtics,total,over,-105,oops",
	}, "\n") + "\n"
	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := csvfile.NewHistory(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "fanduel", got[0].Book, "books are lower-cased on read")
	assert.Equal(t, t0.Add(3*time.Hour), got[0].EventStart)
	assert.Equal(t, -150, got[0].Price)

	assert.Equal(t, "caesars", got[1].Book)
	assert.Equal(t, t0.Add(123456*time.Microsecond), got[1].Timestamp)
	assert.True(t, got[1].EventStart.IsZero())
	assert.Nil(t, got[1].Line, "unparsable line is no line")
}

func TestHistory_Cleanup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.csv")
	h := csvfile.NewHistory(path)

	old := sample()[0]
	old.Timestamp = t0.Add(-8 * 24 * time.Hour)
	_, err := h.Append(ctx, append([]odds.Observation{old}, sample()...))
	require.NoError(t, err)

	removed, err := h.Cleanup(ctx, t0.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	removed, err = h.Cleanup(ctx, t0.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = csvfile.NewHistory(filepath.Join(t.TempDir(), "missing.csv")).Cleanup(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestHistory_CleanupKeepsUnparsableRowsVerbatim(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.csv")
	h := csvfile.NewHistory(path)

	old := sample()[0]
	old.Timestamp = t0.Add(-time.Hour)
	_, err := h.Append(ctx, []odds.Observation{old, sample()[0]})
	require.NoError(t, err)

	badQuote := `2025-03-01T12:30:00Z,fan"duel,NBA,e1,,Lakers,Celtics,moneyline,home,-150,`
	badTime := `yesterday,betmgm,NBA,e1,,Lakers,Celtics,moneyline,away,130,`
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(badQuote + "\n" + badTime + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = h.Append(ctx, sample()[2:])
	require.NoError(t, err)

	removed, err := h.Cleanup(ctx, t0.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), badQuote+"\n")
	assert.Contains(t, string(raw), badTime+"\n")

	got, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []odds.Observation{sample()[0], sample()[2]}, got)
}

func TestLatest_WriteIsIdempotentAndRoundTrips(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	h := csvfile.NewHistory(filepath.Join(dir, "history.csv"))
	later := sample()[1]
	later.Timestamp = t0.Add(2 * time.Hour)
	later.Price = -120
	later.Line = ptr(222)
	_, err := h.Append(ctx, append(sample(), later))
	require.NoError(t, err)

	history, err := h.Load(ctx)
	require.NoError(t, err)
	movements := movement.Aggregate(history)

	latest := csvfile.NewLatest(filepath.Join(dir, "latest", "latest.csv"))
	require.NoError(t, latest.Write(movements))
	first, err := os.ReadFile(latest.Path())
	require.NoError(t, err)

	require.NoError(t, latest.Write(movement.Aggregate(history)))
	second, err := os.ReadFile(latest.Path())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := latest.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, movements, got)

	entries, err := os.ReadDir(filepath.Dir(latest.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLatest_WriteReplacesStaleRows(t *testing.T) {
	latest := csvfile.NewLatest(filepath.Join(t.TempDir(), "latest.csv"))
	movements := movement.Aggregate(sample())
	require.NoError(t, latest.Write(movements))
	require.NoError(t, latest.Write(movements[:1]))

	got, err := latest.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLatest_MissingFileIsEmpty(t *testing.T) {
	got, err := csvfile.NewLatest(filepath.Join(t.TempDir(), "latest.csv")).Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
