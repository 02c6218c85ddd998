package client

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomweather/aggregator/internal/protocol"
	"github.com/atomweather/aggregator/internal/record"
	"github.com/atomweather/aggregator/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedListener serves one connection per handler, in order, then
// stops accepting.
func scriptedListener(t *testing.T, handlers ...func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for _, handle := range handlers {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			handle(conn)
		}
	}()
	return ln.Addr().String()
}

func dropConn(conn net.Conn) {
	conn.Close()
}

func answer(status string, lamport int, body []byte) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		if _, err := protocol.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		resp := &protocol.Response{Status: status, LamportClock: lamport, Body: body}
		resp.Write(conn)
	}
}

func startAggregator(t *testing.T) string {
	t.Helper()
	srv, err := server.New(server.Options{
		Addr:        "127.0.0.1:0",
		StorageFile: filepath.Join(t.TempDir(), "data.txt"),
	}, testLogger())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("server.Start: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv.Addr().String()
}

func TestTransportRetriesDroppedConnections(t *testing.T) {
	// First two connections die before a response; the third succeeds.
	addr := scriptedListener(t,
		dropConn,
		dropConn,
		answer(protocol.StatusNoContent, 5, nil),
	)

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	recs, err := r.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if recs != nil {
		t.Errorf("expected empty result, got %d records", len(recs))
	}

	stats := r.Stats()
	if stats.Sends != 3 {
		t.Errorf("Sends = %d, want 3", stats.Sends)
	}
	if stats.Reconnects != 2 {
		t.Errorf("Reconnects = %d, want 2", stats.Reconnects)
	}
}

func TestTransportGivesUpAfterThreeAttempts(t *testing.T) {
	addr := scriptedListener(t, dropConn, dropConn, dropConn)

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	_, err := r.FetchAll()
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}

	stats := r.Stats()
	if stats.Sends != 3 || stats.Reconnects != 2 {
		t.Errorf("stats = %+v, want Sends 3, Reconnects 2", stats)
	}
}

func TestTransportDoesNotRetryProtocolViolations(t *testing.T) {
	garbage := func(conn net.Conn) {
		defer conn.Close()
		if _, err := protocol.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		conn.Write([]byte("this is not a status line\r\n\r\n"))
	}
	addr := scriptedListener(t, garbage)

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	_, err := r.FetchAll()
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if stats := r.Stats(); stats.Sends != 1 {
		t.Errorf("Sends = %d, want 1 (no retry on protocol faults)", stats.Sends)
	}
}

func TestPublishFileRoundTrip(t *testing.T) {
	addr := startAggregator(t)

	feed := "id:IDS60901\n" +
		"name:Adelaide (West Terrace / ngayirdapira)\n" +
		"state:SA\n" +
		"air_temp:13.3\n" +
		"local_date_time_full:20230715160000\n"
	path := filepath.Join(t.TempDir(), "feed.txt")
	if err := os.WriteFile(path, []byte(feed), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	p := NewPublisher(addr, time.Second, 10*time.Millisecond, testLogger())
	if err := p.PublishFile(path); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	if p.Clock() <= 0 {
		t.Error("publisher clock never advanced")
	}

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	rec, err := r.FetchStation("IDS60901")
	if err != nil {
		t.Fatalf("FetchStation: %v", err)
	}
	if v, _ := rec.Lookup("air_temp"); v != 13.3 {
		t.Errorf("air_temp = %v", v)
	}
	if v, _ := rec.Lookup("local_date_time_full"); v != "20230715160000" {
		t.Errorf("literal date = %v (%T)", v, v)
	}
}

func TestPublishEmptyFeed(t *testing.T) {
	addr := startAggregator(t)

	path := filepath.Join(t.TempDir(), "feed.txt")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	p := NewPublisher(addr, time.Second, 10*time.Millisecond, testLogger())
	if err := p.PublishFile(path); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	recs, err := r.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("empty feed created %d records", len(recs))
	}
}

func TestPublishDetectsVerificationMismatch(t *testing.T) {
	// The fake aggregator accepts the PUT but hands back a doctored
	// record on the verification GET.
	doctored := record.New("IDS60901", "Adelaide")
	doctored.LamportClock = 2
	doctored.Set("air_temp", 99.9)

	addr := scriptedListener(t,
		answer(protocol.StatusCreated, 1, []byte("Data created successfully")),
		answer(protocol.StatusOK, 2, doctored.MarshalFlat()),
	)

	rec := record.New("IDS60901", "Adelaide")
	rec.Set("air_temp", 13.3)

	p := NewPublisher(addr, time.Second, 10*time.Millisecond, testLogger())
	err := p.Publish(rec)
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}
}

func TestPublishFailsWhenStationUnreadableAfterUpload(t *testing.T) {
	addr := scriptedListener(t,
		answer(protocol.StatusCreated, 1, []byte("Data created successfully")),
		answer(protocol.StatusNotFound, 2, []byte("No weather data available for station: IDS60901")),
	)

	rec := record.New("IDS60901", "Adelaide")
	p := NewPublisher(addr, time.Second, 10*time.Millisecond, testLogger())
	err := p.Publish(rec)
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}
}

func TestFetchStationNotFound(t *testing.T) {
	addr := startAggregator(t)

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	_, err := r.FetchStation("IDS99999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReaderObservesServerClock(t *testing.T) {
	addr := scriptedListener(t, answer(protocol.StatusNoContent, 40, nil))

	r := NewReader(addr, time.Second, 10*time.Millisecond, testLogger())
	if _, err := r.FetchAll(); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if r.Clock() <= 40 {
		t.Errorf("reader clock = %d, want > 40 after observing the response", r.Clock())
	}
}
