package clock

import (
	"sync"
	"testing"
)

func TestTickIncrements(t *testing.T) {
	c := New()
	if got := c.Tick(); got != 1 {
		t.Fatalf("first Tick = %d, want 1", got)
	}
	if got := c.Tick(); got != 2 {
		t.Fatalf("second Tick = %d, want 2", got)
	}
	if got := c.Current(); got != 2 {
		t.Fatalf("Current = %d, want 2", got)
	}
}

func TestObserveTakesMaxPlusOne(t *testing.T) {
	c := New()
	c.Tick() // 1

	if got := c.Observe(10); got != 11 {
		t.Fatalf("Observe(10) = %d, want 11", got)
	}
	// A remote value behind the local counter still advances by one.
	if got := c.Observe(3); got != 12 {
		t.Fatalf("Observe(3) = %d, want 12", got)
	}
}

func TestReceiverExceedsSender(t *testing.T) {
	sender := New()
	receiver := New()

	for i := 0; i < 5; i++ {
		receiver.Tick()
	}

	sent := sender.Tick()
	if got := receiver.Observe(sent); got <= sent {
		t.Fatalf("post-observe value %d should strictly exceed sent value %d", got, sent)
	}
}

func TestConcurrentTicksAreDistinct(t *testing.T) {
	c := New()
	const n = 100

	var wg sync.WaitGroup
	values := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values <- c.Tick()
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int]bool, n)
	for v := range values {
		if seen[v] {
			t.Fatalf("duplicate clock value %d", v)
		}
		seen[v] = true
	}
	if got := c.Current(); got != n {
		t.Fatalf("Current = %d after %d ticks, want %d", got, n, n)
	}
}
