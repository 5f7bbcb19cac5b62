package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hetulpatel/hedj/internal/fileutil"
	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/metrics"
	"github.com/hetulpatel/hedj/internal/odds"
)

const defaultHistoryPath = "data/history/odds_history.csv"

// Sources for the rejected-rows metric.
const (
	sourceHistory = "history_csv"
	sourceLatest  = "latest_csv"
)

// History is an append-only CSV file of odds observations. Rows are never
// rewritten except by Cleanup.
type History struct {
	path string
}

// NewHistory returns a store backed by path. The file is created on first append.
func NewHistory(path string) *History {
	if path == "" {
		path = defaultHistoryPath
	}
	return &History{path: path}
}

// Path returns the file backing the store.
func (h *History) Path() string {
	return h.path
}

// Append writes observations to the end of the file, adding the header when
// the file is new or empty. Callers validate rows before appending.
func (h *History) Append(ctx context.Context, rows []odds.Observation) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return 0, fmt.Errorf("ensure history dir: %w", err)
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat history: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(HistoryHeader); err != nil {
			return 0, fmt.Errorf("write history header: %w", err)
		}
	}
	for _, o := range rows {
		if err := w.Write(encodeObservation(o)); err != nil {
			return 0, fmt.Errorf("write history row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush history: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync history: %w", err)
	}
	logging.Infof("[history] appended %d rows to %s", len(rows), h.path)
	return len(rows), nil
}

// Load reads the full history in arrival order. A missing file is an empty
// history; malformed rows are skipped and counted. Any other read failure is
// returned so callers do not overwrite good output with an empty snapshot.
func (h *History) Load(ctx context.Context) ([]odds.Observation, error) {
	f, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return []odds.Observation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	out := make([]odds.Observation, 0)
	err = scanRecords(ctx, f, HistoryHeader, sourceHistory, func(c columns, record []string, line int) {
		o, err := decodeObservation(c, record)
		if err != nil {
			reject(sourceHistory, line, err)
			return
		}
		out = append(out, o)
	})
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", h.path, err)
	}
	return out, nil
}

// Cleanup drops rows observed before the cutoff and rewrites the file
// atomically. Every other row is copied byte for byte, including rows whose
// timestamp cannot be parsed and rows the CSV parser rejects.
func (h *History) Cleanup(ctx context.Context, before time.Time) (int, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read history %s: %w", h.path, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read history %s: header: %w", h.path, err)
	}
	cols, err := newColumns(header, HistoryHeader[:1])
	if err != nil {
		return 0, fmt.Errorf("read history %s: %w", h.path, err)
	}

	var kept bytes.Buffer
	kept.Grow(len(data))
	kept.Write(data[:cr.InputOffset()])
	removed, preserved := 0, 0
	for row := 2; ; row++ {
		if row%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		start := cr.InputOffset()
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		raw := data[start:cr.InputOffset()]
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			preserved++
			logging.Warnf("[history] cleanup keeping unparsable row %d: %v", perr.Line, err)
			kept.Write(raw)
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read history %s: %w", h.path, err)
		}
		ts, err := parseTime(cols.get(record, "timestamp_utc"))
		if err == nil && ts.Before(before) {
			removed++
			continue
		}
		kept.Write(raw)
	}
	if removed == 0 {
		return 0, nil
	}

	err = fileutil.WriteAtomic(h.path, func(f *os.File) error {
		_, err := f.Write(kept.Bytes())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("rewrite history: %w", err)
	}
	logging.Infof("[history] cleanup removed %d rows older than %s (%d unparsable rows kept)", removed, before.Format(time.RFC3339), preserved)
	return removed, nil
}

// scanRecords reads the header, checks the required columns and hands every
// following record to fn. Rows the CSV parser rejects are skipped.
func scanRecords(ctx context.Context, r io.Reader, required []string, source string, fn func(c columns, record []string, line int)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	cols, err := newColumns(header, required)
	if err != nil {
		return err
	}

	for row := 2; ; row++ {
		if row%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			reject(source, perr.Line, err)
			continue
		}
		if err != nil {
			return err
		}
		fn(cols, record, row)
	}
}

func reject(source string, line int, err error) {
	metrics.RowsRejected.WithLabelValues(source, rejectReason(err)).Inc()
	logging.Warnf("[%s] skipping row %d: %v", source, line, err)
}
