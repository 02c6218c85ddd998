package store

import (
	"container/heap"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/atomweather/aggregator/internal/record"
)

var (
	// ErrNotFound is returned when no data is available for a station.
	ErrNotFound = errors.New("no weather data for station")
)

// DefaultCapacity bounds how many stations the store retains before it
// evicts the one with the smallest logical timestamp.
const DefaultCapacity = 20

// Store is the aggregator's authoritative table of latest-known station
// readings. Three structures are kept in lockstep under one mutex:
// the id index, the per-station last-seen wall-clock instants that
// drive expiry, and a min-heap on logical timestamps that names the
// eviction candidate. Readers may run concurrently; every mutation is
// a single exclusive critical section, so no caller can observe the
// structures out of step.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*record.Record
	lastSeen map[string]time.Time
	recency  recencyHeap
	capacity int
}

// New creates an empty store. A capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		byID:     make(map[string]*record.Record),
		lastSeen: make(map[string]time.Time),
		capacity: capacity,
	}
}

// Upsert installs rec as the station's current reading, replacing any
// previous one, and reports whether this was the station's first-ever
// record. The caller stamps rec.LamportClock from the aggregator clock
// before calling. If the insert pushes the store over capacity, the
// record with the smallest logical timestamp is evicted from all three
// structures.
func (s *Store) Upsert(rec *record.Record) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.byID[rec.ID]
	if exists {
		s.recency.remove(rec.ID)
	}
	s.byID[rec.ID] = rec
	s.lastSeen[rec.ID] = time.Now()
	heap.Push(&s.recency, rec)

	if s.recency.Len() > s.capacity {
		oldest := heap.Pop(&s.recency).(*record.Record)
		delete(s.byID, oldest.ID)
		delete(s.lastSeen, oldest.ID)
	}
	return !exists
}

// Get returns a copy of the station's current record.
func (s *Store) Get(id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return record.Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

// Snapshot returns a consistent point-in-time copy of every current
// record, most recently stamped first.
func (s *Store) Snapshot() []*record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*record.Record, 0, len(s.byID))
	for _, rec := range s.byID {
		c := copyRecord(rec)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LamportClock > out[j].LamportClock
	})
	return out
}

// Len reports how many stations are currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// ExpireOlderThan removes every station whose last update was seen
// before threshold, returning how many were removed.
func (s *Store) ExpireOlderThan(threshold time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, seen := range s.lastSeen {
		if seen.Before(threshold) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.byID, id)
		delete(s.lastSeen, id)
		s.recency.remove(id)
	}
	return len(expired)
}

func copyRecord(rec *record.Record) record.Record {
	c := *rec
	c.Fields = make([]record.Field, len(rec.Fields))
	copy(c.Fields, rec.Fields)
	return c
}

// recencyHeap is a min-heap on LamportClock; the root is the eviction
// candidate. No station id appears twice.
type recencyHeap []*record.Record

func (h recencyHeap) Len() int           { return len(h) }
func (h recencyHeap) Less(i, j int) bool { return h[i].LamportClock < h[j].LamportClock }
func (h recencyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *recencyHeap) Push(x any)        { *h = append(*h, x.(*record.Record)) }
func (h *recencyHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return rec
}

// remove drops the entry for id, if present, and restores heap order.
func (h *recencyHeap) remove(id string) {
	for i, rec := range *h {
		if rec.ID == id {
			heap.Remove(h, i)
			return
		}
	}
}
