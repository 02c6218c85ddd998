package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically removes expired station data from the store.
// It runs independently of request handling against the same shared
// store; GET handling additionally triggers the same sweep inline.
type Sweeper struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	sweep     func()
	log       *slog.Logger
}

// New creates a Sweeper that invokes sweep every interval.
func New(interval time.Duration, sweep func(), log *slog.Logger) *Sweeper {
	s := gocron.NewScheduler(time.UTC)
	return &Sweeper{
		scheduler: s,
		interval:  interval,
		sweep:     sweep,
		log:       log,
	}
}

// Start schedules the periodic sweep and starts the underlying
// scheduler asynchronously.
func (s *Sweeper) Start() error {
	if s.sweep == nil {
		return fmt.Errorf("scheduler: no sweep function configured")
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.sweep()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Debug("expiry sweep scheduled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future sweeps.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
