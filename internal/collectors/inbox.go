package collectors

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/odds"
)

const maxLineBytes = 4 << 20

// Inbox reads JSON-lines records dropped into a file by an upstream fetcher.
//
// With Consume set, Fetch first claims the inbox by renaming it to
// <path>.processing and Ack deletes the claimed file. A claimed file left by
// a failed run is read again on the next Fetch, so nothing is lost between a
// failed append and the retry.
type Inbox struct {
	Path    string
	Consume bool
	Now     func() time.Time
}

func NewInbox(path string, consume bool) *Inbox {
	return &Inbox{Path: path, Consume: consume, Now: time.Now}
}

func (p *Inbox) Name() string { return "inbox" }

func (p *Inbox) processingPath() string { return p.Path + ".processing" }

func (p *Inbox) Fetch(ctx context.Context, sports []string) ([]odds.Observation, error) {
	path := p.Path
	if p.Consume {
		claimed, err := p.claim()
		if err != nil {
			return nil, err
		}
		if !claimed {
			return []odds.Observation{}, nil
		}
		path = p.processingPath()
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []odds.Observation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open inbox: %w", err)
	}
	defer f.Close()

	fetchedAt := p.now()
	filter := newSportFilter(sports)
	out := make([]odds.Observation, 0)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		rows, err := DecodeRecord(raw, fetchedAt)
		if err != nil {
			metrics.RowsRejected.WithLabelValues("inbox", "decode").Inc()
			logging.Warnf("[inbox] skipping line %d: %v", line, err)
			continue
		}
		out = append(out, filter.apply(rows)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	logging.Debugf("[inbox] fetched %d observations from %s", len(out), path)
	return out, nil
}

// claim reports whether there is a claimed file to read.
func (p *Inbox) claim() (bool, error) {
	if _, err := os.Stat(p.processingPath()); err == nil {
		logging.Warnf("[inbox] re-reading unacknowledged %s", p.processingPath())
		return true, nil
	}
	err := os.Rename(p.Path, p.processingPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim inbox: %w", err)
	}
	return true, nil
}

// Ack deletes the claimed file. Without Consume it does nothing.
func (p *Inbox) Ack(_ context.Context) error {
	if !p.Consume {
		return nil
	}
	if err := os.Remove(p.processingPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ack inbox: %w", err)
	}
	return nil
}

func (p *Inbox) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}
