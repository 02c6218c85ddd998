package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/atomweather/aggregator/internal/clock"
	"github.com/atomweather/aggregator/internal/record"
)

// Reader is the GET client role: it pulls the aggregator's merged,
// recency-ordered view, or a single station by id.
type Reader struct {
	transport *transport
	clock     *clock.Lamport
	log       *slog.Logger
}

// NewReader creates a reader for the aggregator at addr (host:port).
func NewReader(addr string, timeout, delay time.Duration, log *slog.Logger) *Reader {
	clk := clock.New()
	return &Reader{
		transport: newTransport("reader", addr, timeout, delay, clk, log),
		clock:     clk,
		log:       log,
	}
}

// FetchAll returns every current station record, most recent first.
// An empty aggregator yields an empty slice, not an error.
func (r *Reader) FetchAll() ([]*record.Record, error) {
	resp, err := r.transport.do("GET", "/weather.json", nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case 200:
		recs, err := record.UnmarshalFlatArray(resp.Body)
		if err != nil {
			return nil, &ProtocolError{Err: fmt.Errorf("decode response body: %w", err)}
		}
		return recs, nil
	case 204:
		return nil, nil
	default:
		return nil, &ProtocolError{Err: fmt.Errorf("unexpected status %q", resp.Status)}
	}
}

// FetchStation returns the record for one station id, or ErrNotFound.
func (r *Reader) FetchStation(id string) (*record.Record, error) {
	resp, err := r.transport.do("GET", "/weather.json?id="+id, nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case 200:
		rec, err := record.UnmarshalFlat(resp.Body)
		if err != nil {
			return nil, &ProtocolError{Err: fmt.Errorf("decode response body: %w", err)}
		}
		return rec, nil
	case 404:
		return nil, fmt.Errorf("%w for station %s", ErrNotFound, id)
	default:
		return nil, &ProtocolError{Err: fmt.Errorf("unexpected status %q", resp.Status)}
	}
}

// Clock exposes the reader's logical clock value.
func (r *Reader) Clock() int { return r.clock.Current() }

// Stats exposes transport counters.
func (r *Reader) Stats() Stats { return r.transport.Stats() }
