package matching

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// testClock wraps the clockwork fake so a test knows when every timer
// that fired during Advance has handed its work to the engine. clockwork
// runs AfterFunc callbacks on their own goroutines.
type testClock struct {
	*clockwork.FakeClock

	mu       sync.Mutex
	timers   []*testTimer
	inFlight atomic.Int64
}

type testTimer struct {
	clockwork.Timer
	clk     *testClock
	due     time.Time
	counted bool
	done    bool
}

func newTestClock(at time.Time) *testClock {
	return &testClock{FakeClock: clockwork.NewFakeClockAt(at)}
}

func (c *testClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &testTimer{clk: c, due: c.FakeClock.Now().Add(d)}
	if d <= 0 {
		t.counted, t.done = true, true
		c.inFlight.Add(1)
	} else {
		c.timers = append(c.timers, t)
	}
	t.Timer = c.FakeClock.AfterFunc(d, func() {
		defer c.inFlight.Add(-1)
		f()
	})
	return t
}

func (t *testTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if !t.Timer.Stop() {
		return false
	}
	if t.counted {
		t.clk.inFlight.Add(-1)
	}
	t.done = true
	return true
}

// Advance moves the clock and returns once every callback it fired has run
func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.FakeClock.Now().Add(d)
	live := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.done:
		case !t.due.After(target):
			t.counted, t.done = true, true
			c.inFlight.Add(1)
		default:
			live = append(live, t)
		}
	}
	c.timers = live
	c.mu.Unlock()

	c.FakeClock.Advance(d)

	deadline := time.Now().Add(3 * time.Second)
	for c.inFlight.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

// nextDue returns the earliest live deadline that is not after limit
func (c *testClock) nextDue(limit time.Time) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var next time.Time
	found := false
	for _, t := range c.timers {
		if t.done || t.due.After(limit) {
			continue
		}
		if !found || t.due.Before(next) {
			next, found = t.due, true
		}
	}
	return next, found
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *testClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}
