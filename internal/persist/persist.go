package persist

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/atomweather/aggregator/internal/record"
)

// Snapshotter writes the store's records to a single file, one storage
// line per record, and reloads them at startup. Every save goes through
// a temp file followed by an atomic rename, so a reader never observes
// a partially written snapshot. Saves are serialized against each
// other; they do not block request handling beyond the triggering
// request's own response.
type Snapshotter struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

func New(path string, log *slog.Logger) *Snapshotter {
	return &Snapshotter{path: path, log: log}
}

// Path returns the primary snapshot file location.
func (s *Snapshotter) Path() string { return s.path }

// Save serializes the records and atomically replaces the snapshot
// file. The caller blocks until the rename completes.
func (s *Snapshotter) Save(recs []*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range recs {
		if _, err := w.WriteString(rec.StorageLine() + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file back into records. A missing file means
// an empty initial store; a line that fails to parse is logged and
// skipped rather than aborting the load.
func (s *Snapshotter) Load() ([]*record.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var recs []*record.Record
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := record.FromStorageLine(line)
		if err != nil {
			s.log.Warn("skipping invalid snapshot line", "line", line, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
