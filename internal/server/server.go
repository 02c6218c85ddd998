package server

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atomweather/aggregator/internal/clock"
	"github.com/atomweather/aggregator/internal/persist"
	"github.com/atomweather/aggregator/internal/protocol"
	"github.com/atomweather/aggregator/internal/record"
	"github.com/atomweather/aggregator/internal/scheduler"
	"github.com/atomweather/aggregator/internal/store"
)

// Options configures an aggregation server.
type Options struct {
	Addr          string
	StorageFile   string
	Capacity      int
	Workers       int
	IOTimeout     time.Duration
	ExpiryWindow  time.Duration
	SweepInterval time.Duration
}

func (o *Options) fillDefaults() {
	if o.Workers <= 0 {
		o.Workers = 10
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = 5 * time.Second
	}
	if o.ExpiryWindow <= 0 {
		o.ExpiryWindow = 30 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Second
	}
}

// Server is the aggregation server: it owns the listening socket, a
// bounded pool of request handlers, the shared record store, the
// process logical clock, and the periodic expiry sweep.
type Server struct {
	opts    Options
	store   *store.Store
	clock   *clock.Lamport
	snap    *persist.Snapshotter
	sweeper *scheduler.Sweeper
	log     *slog.Logger

	ln      net.Listener
	conns   chan net.Conn
	wg      sync.WaitGroup
	running atomic.Bool
	done    chan struct{}
}

// New builds a server and rehydrates its store from the snapshot file.
// The logical clock always restarts at zero; recovered records keep
// the timestamps they were persisted with.
func New(opts Options, log *slog.Logger) (*Server, error) {
	opts.fillDefaults()

	s := &Server{
		opts:  opts,
		store: store.New(opts.Capacity),
		clock: clock.New(),
		snap:  persist.New(opts.StorageFile, log),
		log:   log,
		done:  make(chan struct{}),
	}
	s.sweeper = scheduler.New(opts.SweepInterval, s.sweepExpired, log)

	recs, err := s.snap.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	for _, rec := range recs {
		s.store.Upsert(rec)
	}
	if len(recs) > 0 {
		log.Info("snapshot recovered", "stations", s.store.Len())
	}
	return s, nil
}

// Start begins listening and accepting connections. It returns once
// the listener is bound; request handling runs on the worker pool.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.ln = ln
	s.running.Store(true)
	s.conns = make(chan net.Conn)

	if err := s.sweeper.Start(); err != nil {
		ln.Close()
		return err
	}

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	go s.acceptLoop()

	s.log.Info("aggregation server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, lets in-flight handlers finish, flushes
// the store to the snapshot file, and releases the socket.
func (s *Server) Shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.ln.Close()
	<-s.done
	s.wg.Wait()
	s.sweeper.Stop()

	if err := s.snap.Save(s.store.Snapshot()); err != nil {
		s.log.Error("final snapshot save failed", "error", err)
	}
	s.log.Info("aggregation server stopped")
}

// acceptLoop accepts connections under a deadline so it can recheck
// the running flag; a timeout on accept is the shutdown poll, not an
// error.
func (s *Server) acceptLoop() {
	defer close(s.done)
	for s.running.Load() {
		if tcp, ok := s.ln.(*net.TCPListener); ok {
			tcp.SetDeadline(time.Now().Add(s.opts.IOTimeout))
		}
		conn, err := s.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if s.running.Load() {
				s.log.Warn("accept failed", "error", err)
			}
			break
		}
		s.conns <- conn
	}
	close(s.conns)
}

func (s *Server) worker() {
	defer s.wg.Done()
	for conn := range s.conns {
		s.handleConn(conn)
	}
}

// handleConn serves exactly one request on the connection.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.opts.IOTimeout))

	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			s.log.Warn("protocol violation", "error", err)
			s.respond(conn, protocol.StatusBadRequest, []byte("Invalid request format"))
		}
		return
	}

	// Dispatch is a local event, then the request's clock value is
	// merged so causally related responses stamp strictly later.
	reqClock := s.clock.Tick()
	if req.LamportClock > 0 {
		reqClock = s.clock.Observe(req.LamportClock)
	}

	switch {
	case req.Method == "GET" && strings.HasPrefix(req.Path, "/weather.json"):
		s.handleGet(conn, req)
	case req.Method == "PUT" && req.Path == "/weather.json":
		s.handlePut(conn, req, reqClock)
	default:
		s.log.Info("rejected request", "method", req.Method, "path", req.Path)
		s.respond(conn, protocol.StatusBadRequest, []byte("Invalid request"))
	}
}

func (s *Server) handleGet(conn net.Conn, req *protocol.Request) {
	s.sweepExpired()

	if _, query, ok := strings.Cut(req.Path, "?"); ok {
		id, found := strings.CutPrefix(query, "id=")
		if !found || id == "" {
			s.respond(conn, protocol.StatusBadRequest, []byte("Invalid request"))
			return
		}
		rec, err := s.store.Get(id)
		if err != nil {
			s.respond(conn, protocol.StatusNotFound,
				[]byte("No weather data available for station: "+id))
			return
		}
		s.respond(conn, protocol.StatusOK, rec.MarshalFlat())
		return
	}

	recs := s.store.Snapshot()
	if len(recs) == 0 {
		s.respond(conn, protocol.StatusNoContent, nil)
		return
	}
	s.respond(conn, protocol.StatusOK, record.MarshalFlatArray(recs))
}

func (s *Server) handlePut(conn net.Conn, req *protocol.Request, reqClock int) {
	body := strings.TrimSpace(string(req.Body))
	if body == "" {
		s.respond(conn, protocol.StatusNoContent, nil)
		return
	}

	rec, err := record.UnmarshalFlat([]byte(body))
	if err != nil {
		s.log.Warn("rejected station payload", "error", err)
		s.respond(conn, protocol.StatusInternal, []byte("Invalid input data: "+err.Error()))
		return
	}
	if err := rec.Validate(); err != nil {
		s.log.Warn("rejected station payload", "error", err)
		s.respond(conn, protocol.StatusInternal, []byte("Invalid input data: "+err.Error()))
		return
	}

	// The merge is stamped with this request's own post-observe clock
	// value, so concurrent PUTs always receive distinct timestamps.
	rec.LamportClock = reqClock
	created := s.store.Upsert(rec)
	s.saveSnapshot()

	if created {
		s.log.Info("station created", "id", rec.ID, "lamport", rec.LamportClock)
		s.respond(conn, protocol.StatusCreated, []byte("Data created successfully"))
	} else {
		s.log.Info("station updated", "id", rec.ID, "lamport", rec.LamportClock)
		s.respond(conn, protocol.StatusOK, []byte("Data updated successfully"))
	}
}

// respond ticks the clock for the send event and writes the response
// carrying the post-tick value.
func (s *Server) respond(conn net.Conn, status string, body []byte) {
	resp := &protocol.Response{
		Status:       status,
		LamportClock: s.clock.Tick(),
		Body:         body,
	}
	if err := resp.Write(conn); err != nil {
		s.log.Warn("response write failed", "error", err)
	}
}

// sweepExpired removes stations that have not been updated within the
// expiry window and persists the store when anything was removed.
func (s *Server) sweepExpired() {
	removed := s.store.ExpireOlderThan(time.Now().Add(-s.opts.ExpiryWindow))
	if removed > 0 {
		s.log.Info("expired stations removed", "count", removed)
		s.saveSnapshot()
	}
}

// saveSnapshot persists the store synchronously. Save failures are
// logged and non-fatal: the in-memory store stays authoritative until
// the next successful save.
func (s *Server) saveSnapshot() {
	if err := s.snap.Save(s.store.Snapshot()); err != nil {
		s.log.Error("snapshot save failed", "error", err)
	}
}
