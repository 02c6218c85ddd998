// Package client implements the two external roles that speak the
// aggregator's wire protocol: publishers (content servers) that PUT
// station readings and verify them, and readers that GET the merged
// view. Both roles carry their own logical clock and share one
// retrying transport.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sony/gobreaker"

	"github.com/atomweather/aggregator/internal/clock"
	"github.com/atomweather/aggregator/internal/protocol"
)

const (
	maxAttempts  = 3
	defaultDelay = 3 * time.Second
)

// ErrNotFound is returned when the aggregator has no data for the
// requested station.
var ErrNotFound = errors.New("no weather data available")

// ErrVerificationFailed marks a read-after-write mismatch: the
// aggregator's merged state differs from what the publisher sent. It
// is a workflow error, distinct from transport failures, and is never
// retried automatically.
var ErrVerificationFailed = errors.New("uploaded data does not match the data on the server")

// TransportError wraps connection-level failures (refused, reset,
// timed out). These are the only failures the retry loop retries.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError wraps responses (or response bytes) that violate the
// wire contract. Retrying cannot help, so the loop surfaces these
// immediately.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol: %v", e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// Stats counts transport activity, mainly for tests and diagnostics.
type Stats struct {
	Sends      int
	Reconnects int
}

// transport dials the aggregator fresh for every attempt; stale
// sockets are never reused. A circuit breaker sits around each attempt
// the same way the outbound calls of the upstream fetchers do, sized
// so it never trips inside a single retry burst.
type transport struct {
	addr    string
	timeout time.Duration
	delay   time.Duration
	clock   *clock.Lamport
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
	stats   Stats
}

func newTransport(name, addr string, timeout, delay time.Duration, clk *clock.Lamport, log *slog.Logger) *transport {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if delay < 0 {
		delay = defaultDelay
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &transport{
		addr:    addr,
		timeout: timeout,
		delay:   delay,
		clock:   clk,
		breaker: cb,
		log:     log,
	}
}

// do sends the request, retrying transport failures up to maxAttempts
// total with a fixed inter-attempt delay. Each attempt re-sends the
// full request on a fresh connection with a fresh pre-send clock tick;
// exhausting all attempts surfaces the last transport failure.
func (t *transport) do(method, path string, body []byte) (*protocol.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(t.delay)
			t.stats.Reconnects++
		}

		req := &protocol.Request{
			Method:       method,
			Path:         path,
			Version:      "HTTP/1.1",
			LamportClock: t.clock.Tick(),
			Body:         body,
		}
		t.stats.Sends++

		result, err := t.breaker.Execute(func() (interface{}, error) {
			return t.roundTrip(req)
		})
		if err == nil {
			resp := result.(*protocol.Response)
			t.clock.Observe(resp.LamportClock)
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &TransportError{Op: "circuit", Err: err}
		}

		var te *TransportError
		if errors.As(err, &te) {
			t.log.Warn("attempt failed", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		// Protocol and decode faults are not transport failures; a
		// retry would just replay the same bad exchange.
		return nil, err
	}
	return nil, lastErr
}

// roundTrip performs one attempt: dial, write, read one response.
func (t *transport) roundTrip(req *protocol.Request) (*protocol.Response, error) {
	conn, err := net.DialTimeout("tcp", t.addr, t.timeout)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(t.timeout))

	if err := req.Write(conn); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	resp, err := protocol.ReadResponse(bufio.NewReader(conn))
	if err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			return nil, &ProtocolError{Err: err}
		}
		return nil, &TransportError{Op: "read", Err: err}
	}
	return resp, nil
}

// Stats returns the transport counters accumulated so far.
func (t *transport) Stats() Stats { return t.stats }
