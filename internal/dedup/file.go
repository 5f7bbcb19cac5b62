package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/fileutil"
)

const defaultFilePath = "data/alerts/sent_alerts.json"

// FileStore keeps the key -> first-alerted map in a JSON file of ISO-8601
// UTC timestamps. Expired entries are dropped when the file is loaded.
type FileStore struct {
	path      string
	retention time.Duration
	entries   map[string]time.Time
}

// OpenFile loads the dedup file, dropping entries older than retention
// relative to now. A missing file starts empty; an unreadable or corrupt
// one is an error.
func OpenFile(path string, retention time.Duration, now time.Time) (*FileStore, error) {
	if path == "" {
		path = defaultFilePath
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &FileStore{path: path, retention: retention, entries: make(map[string]time.Time)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dedup file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode dedup file %s: %w", path, err)
	}

	expired := 0
	for key, ts := range stored {
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			logging.Warnf("[dedup] dropping %q: bad timestamp %q", key, ts)
			continue
		}
		if now.Sub(at) > retention {
			expired++
			continue
		}
		s.entries[key] = at.UTC()
	}
	logging.Debugf("[dedup] loaded %d keys from %s, %d expired", len(s.entries), path, expired)
	return s, nil
}

func (s *FileStore) IsNew(_ context.Context, key string) (bool, error) {
	_, seen := s.entries[key]
	return !seen, nil
}

// Mark records key as alerted at now. An existing entry keeps its original
// first-alerted time.
func (s *FileStore) Mark(_ context.Context, key string, now time.Time) error {
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = now.UTC()
	}
	return nil
}

// Save rewrites the whole file atomically.
func (s *FileStore) Save(_ context.Context) error {
	out := make(map[string]string, len(s.entries))
	for key, at := range s.entries {
		out[key] = at.UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dedup entries: %w", err)
	}
	return fileutil.WriteAtomic(s.path, func(f *os.File) error {
		_, err := f.Write(append(payload, '\n'))
		return err
	})
}

func (s *FileStore) Close() error { return nil }

// Keys lists the live keys, sorted.
func (s *FileStore) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
