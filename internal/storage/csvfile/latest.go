package csvfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/odds"
)

const defaultLatestPath = "data/latest/latest.csv"

// Latest is the snapshot file holding one movement row per key. It is
// replaced wholesale on every write.
type Latest struct {
	path string
}

func NewLatest(path string) *Latest {
	if path == "" {
		path = defaultLatestPath
	}
	return &Latest{path: path}
}

func (l *Latest) Path() string {
	return l.path
}

// Write atomically replaces the snapshot with movements, in the given order.
func (l *Latest) Write(movements []odds.Movement) error {
	rows := make([][]string, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, encodeMovement(m))
	}
	if err := writeCSV(l.path, LatestHeader, rows); err != nil {
		return fmt.Errorf("write latest: %w", err)
	}
	logging.Infof("[latest] wrote %d rows to %s", len(rows), l.path)
	return nil
}

// Read loads the snapshot. A missing file yields no movements.
func (l *Latest) Read(ctx context.Context) ([]odds.Movement, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []odds.Movement{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open latest: %w", err)
	}
	defer f.Close()

	out := make([]odds.Movement, 0)
	err = scanRecords(ctx, f, LatestHeader, sourceLatest, func(c columns, record []string, line int) {
		m, err := decodeMovement(c, record)
		if err != nil {
			reject(sourceLatest, line, err)
			return
		}
		out = append(out, m)
	})
	if err != nil {
		return nil, fmt.Errorf("read latest %s: %w", l.path, err)
	}
	return out, nil
}
