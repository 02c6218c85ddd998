package client

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/atomweather/aggregator/internal/clock"
	"github.com/atomweather/aggregator/internal/record"
)

// Publisher is the content server role: it reads a local feed file,
// uploads it to the aggregator, and confirms the merge with a
// read-after-write verification GET.
type Publisher struct {
	transport *transport
	clock     *clock.Lamport
	log       *slog.Logger
}

// NewPublisher creates a publisher for the aggregator at addr
// (host:port). delay is the fixed wait between retry attempts; a
// negative value selects the default.
func NewPublisher(addr string, timeout, delay time.Duration, log *slog.Logger) *Publisher {
	clk := clock.New()
	return &Publisher{
		transport: newTransport("publisher", addr, timeout, delay, clk, log),
		clock:     clk,
		log:       log,
	}
}

// PublishFile reads the feed file at path and uploads it. An empty
// feed file still results in an (empty) PUT, which the aggregator
// acknowledges with 204 and no state change.
func (p *Publisher) PublishFile(path string) error {
	p.clock.Tick() // local event: starting to process

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feed file: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		resp, err := p.transport.do("PUT", "/weather.json", nil)
		if err != nil {
			return err
		}
		if resp.StatusCode() != 204 {
			return &ProtocolError{Err: fmt.Errorf("unexpected status %q for empty feed", resp.Status)}
		}
		return nil
	}

	p.clock.Tick() // local event: parsing the feed
	rec, err := record.ParseFeed(string(content))
	if err != nil {
		return fmt.Errorf("parse feed file: %w", err)
	}
	return p.Publish(rec)
}

// Publish uploads one station record and verifies it landed intact.
// Transport failures are retried by the transport layer; a
// verification mismatch is surfaced as ErrVerificationFailed and left
// to the caller.
func (p *Publisher) Publish(rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	p.clock.Tick() // local event: encoding
	rec.LamportClock = p.clock.Current()
	body := rec.MarshalFlat()

	resp, err := p.transport.do("PUT", "/weather.json", body)
	if err != nil {
		return err
	}
	switch resp.StatusCode() {
	case 200, 201, 204:
	default:
		return &ProtocolError{Err: fmt.Errorf("PUT rejected with status %q: %s", resp.Status, resp.Body)}
	}
	p.log.Info("station published", "id", rec.ID, "status", resp.Status)

	return p.verify(rec)
}

// verify fetches the station back and structurally compares the field
// sets. Any mismatch, including keys present on one side only, fails
// verification.
func (p *Publisher) verify(rec *record.Record) error {
	p.clock.Tick() // local event: starting verification

	resp, err := p.transport.do("GET", "/weather.json?id="+rec.ID, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: station %s not readable after upload (status %q)",
			ErrVerificationFailed, rec.ID, resp.Status)
	}

	got, err := record.UnmarshalFlat(resp.Body)
	if err != nil {
		return &ProtocolError{Err: fmt.Errorf("decode verification response: %w", err)}
	}

	want := rec.FieldMap()
	have := got.FieldMap()
	var diffs []string
	for key, w := range want {
		h, ok := have[key]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("%s: sent=%q, stored=absent", key, w))
		} else if h != w {
			diffs = append(diffs, fmt.Sprintf("%s: sent=%q, stored=%q", key, w, h))
		}
	}
	for key, h := range have {
		if _, ok := want[key]; !ok {
			diffs = append(diffs, fmt.Sprintf("%s: sent=absent, stored=%q", key, h))
		}
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%w: %s", ErrVerificationFailed, strings.Join(diffs, "; "))
	}

	p.log.Info("station verified", "id", rec.ID)
	return nil
}

// Clock exposes the publisher's logical clock value.
func (p *Publisher) Clock() int { return p.clock.Current() }

// Stats exposes transport counters.
func (p *Publisher) Stats() Stats { return p.transport.Stats() }
