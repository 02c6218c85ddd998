package persist

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atomweather/aggregator/internal/record"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	snap := New(path, discardLogger())

	a := record.New("IDS60901", "Adelaide")
	a.LamportClock = 3
	a.Set("air_temp", 23.5)
	b := record.New("IDS60902", "Melbourne")
	b.LamportClock = 5
	b.Set("local_date_time_full", "20230715160000")

	if err := snap.Save([]*record.Record{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	recs, err := snap.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("loaded %d records, want 2", len(recs))
	}
	byID := map[string]*record.Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	if byID["IDS60901"].LamportClock != 3 {
		t.Errorf("IDS60901 lamport = %d, want 3", byID["IDS60901"].LamportClock)
	}
	if v, _ := byID["IDS60901"].Lookup("air_temp"); v != 23.5 {
		t.Errorf("air_temp = %v", v)
	}
	if v, _ := byID["IDS60902"].Lookup("local_date_time_full"); v != "20230715160000" {
		t.Errorf("literal date = %v (%T), want string", v, v)
	}
}

func TestLoadMissingFileIsEmptyStore(t *testing.T) {
	snap := New(filepath.Join(t.TempDir(), "absent.txt"), discardLogger())
	recs, err := snap.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("loaded %d records from absent file, want 0", len(recs))
	}
}

func TestLoadSkipsInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	content := "id:IDS60901,name:Adelaide,lamportClock:1\n" +
		"this line is garbage\n" +
		"name:NoID,lamportClock:2\n" +
		"id:IDS60902,name:Melbourne,lamportClock:notanumber\n" +
		"id:IDS60903,name:Hobart,lamportClock:3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snap := New(path, discardLogger())
	recs, err := snap.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("loaded %d records, want 2 valid ones", len(recs))
	}
	if recs[0].ID != "IDS60901" || recs[1].ID != "IDS60903" {
		t.Errorf("got ids %s,%s", recs[0].ID, recs[1].ID)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	snap := New(path, discardLogger())

	a := record.New("IDS60901", "Adelaide")
	if err := snap.Save([]*record.Record{a}); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	b := record.New("IDS60902", "Melbourne")
	if err := snap.Save([]*record.Record{b}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	// Only the primary file remains; no temp files linger.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "data.txt" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory contents = %v, want only data.txt", names)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "IDS60902") || strings.Contains(string(data), "IDS60901") {
		t.Fatalf("second save did not fully replace the first: %s", data)
	}
}
