package collectors_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/hedj/internal/collectors"
	"github.com/hetulpatel/hedj/internal/odds"
)

var fetchedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const eventLine = `{"event_id":"e1","sport":"NBA","home_team":"Lakers","away_team":"Celtics","start_time":"2025-03-01T19:00:00Z","markets":[{"market_type":"moneyline","book":"FanDuel","outcomes":[{"outcome":"home","price":-150},{"outcome":"away","price":130}]},{"market_type":"total","book":"betmgm","outcomes":[{"outcome":"over","price":-110,"line":220.5}]}]}`

const rowLine = `{"timestamp_utc":"2025-03-01T11:00:00Z","book":"Caesars","sport":"NHL","event_id":"h1","home_team":"Bruins","away_team":"Rangers","market_type":"moneyline","outcome":"home","price":110}`

func TestDecodeRecord_Event(t *testing.T) {
	rows, err := collectors.DecodeRecord([]byte(eventLine), fetchedAt)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "fanduel", rows[0].Book)
	assert.Equal(t, fetchedAt, rows[0].Timestamp)
	assert.Equal(t, time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC), rows[0].EventStart)
	assert.Equal(t, odds.MarketTotal, rows[2].Market)
	require.NotNil(t, rows[2].Line)
	assert.Equal(t, 220.5, *rows[2].Line)
}

func TestDecodeRecord_Row(t *testing.T) {
	rows, err := collectors.DecodeRecord([]byte(rowLine), fetchedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "caesars", rows[0].Book)
	assert.Equal(t, fetchedAt.Add(-time.Hour), rows[0].Timestamp, "provider timestamp wins")
	assert.True(t, rows[0].EventStart.IsZero())
	assert.Nil(t, rows[0].Line)
}

func TestDecodeRecord_Garbage(t *testing.T) {
	_, err := collectors.DecodeRecord([]byte(`{"book":`), fetchedAt)
	assert.Error(t, err)
}

func writeInbox(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inbox.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestInbox_FetchFiltersSportsAndSkipsBadLines(t *testing.T) {
	path := writeInbox(t, eventLine, "", "not json", rowLine)
	p := collectors.NewInbox(path, false)
	p.Now = func() time.Time { return fetchedAt }

	rows, err := p.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = p.Fetch(context.Background(), []string{"nhl"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "h1", rows[0].EventID)

	require.NoError(t, p.Ack(context.Background()))
	_, err = os.Stat(path)
	assert.NoError(t, err, "non-consuming inbox is left in place")
}

func TestInbox_ConsumeClaimsAndAcks(t *testing.T) {
	ctx := context.Background()
	path := writeInbox(t, rowLine)
	p := collectors.NewInbox(path, true)

	rows, err := p.Fetch(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "inbox claimed")

	// an unacknowledged claim is read again
	rows, err = p.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, p.Ack(ctx))
	rows, err = p.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInbox_MissingFile(t *testing.T) {
	for _, consume := range []bool{false, true} {
		p := collectors.NewInbox(filepath.Join(t.TempDir(), "none.jsonl"), consume)
		rows, err := p.Fetch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}
}

type fakeReader struct {
	msgs      []kafkago.Message
	committed []kafkago.Message

	// failAfter delivered messages, return failErr once.
	failAfter int
	failErr   error
	delivered int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if r.failErr != nil && r.delivered == r.failAfter {
		err := r.failErr
		r.failErr = nil
		return kafkago.Message{}, err
	}
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	r.delivered++
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestTopic_FetchUntilIdleThenCommit(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{msgs: []kafkago.Message{
		{Offset: 1, Value: []byte(rowLine)},
		{Offset: 2, Value: []byte("garbage")},
		{Offset: 3, Value: []byte(eventLine)},
	}}
	p := collectors.NewTopic(reader, 20*time.Millisecond)
	p.Now = func() time.Time { return fetchedAt }

	rows, err := p.Fetch(ctx, []string{"NBA"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Empty(t, reader.committed, "nothing committed before ack")

	require.NoError(t, p.Ack(ctx))
	assert.Len(t, reader.committed, 3)
	require.NoError(t, p.Ack(ctx))
	assert.Len(t, reader.committed, 3)
}

func TestTopic_BrokerErrorMidFetchRedeliversBeforeCommit(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{
		msgs: []kafkago.Message{
			{Offset: 1, Value: []byte(rowLine)},
			{Offset: 2, Value: []byte(rowLine)},
		},
		failAfter: 1,
		failErr:   errors.New("broker connection reset"),
	}
	p := collectors.NewTopic(reader, 20*time.Millisecond)
	p.Now = func() time.Time { return fetchedAt }

	_, err := p.Fetch(ctx, nil)
	require.Error(t, err)

	// the update run failed before appending, so nothing is acked
	rows, err := p.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "offset 1 is returned again with offset 2")

	require.NoError(t, p.Ack(ctx))
	require.Len(t, reader.committed, 2)
	assert.Equal(t, int64(1), reader.committed[0].Offset)
	assert.Equal(t, int64(2), reader.committed[1].Offset)

	rows, err = p.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows, "committed messages are not returned again")
}

func TestTopic_UnackedFetchIsReturnedAgain(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{msgs: []kafkago.Message{{Offset: 7, Value: []byte(rowLine)}}}
	p := collectors.NewTopic(reader, 20*time.Millisecond)

	first, err := p.Fetch(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	again, err := p.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Empty(t, reader.committed)
}

func TestTopic_MaxMessages(t *testing.T) {
	reader := &fakeReader{msgs: []kafkago.Message{
		{Offset: 1, Value: []byte(rowLine)},
		{Offset: 2, Value: []byte(rowLine)},
	}}
	p := collectors.NewTopic(reader, time.Second)
	p.MaxMessages = 1

	rows, err := p.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	done := make(chan struct{})
	go func() {
		collectors.RunLoop(ctx, "test", 5*time.Millisecond, func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 3 {
				cancel()
			}
			return errors.New("keep going")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not stop")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}
