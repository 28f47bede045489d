package frame

import (
	"time"

	"github.com/benbjohnson/clock"
)

// spinThreshold is how close to the deadline Wait stops sleeping and spins
const spinThreshold = 200 * time.Microsecond

// Limiter paces a render loop to a target frame rate
type Limiter struct {
	clock clock.Clock
	limit int
	next  time.Time
}

// NewLimiter creates a limiter for limit frames per second. A limit of 0 or
// less leaves the loop uncapped.
func NewLimiter(clk clock.Clock, limit int) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{clock: clk, limit: limit}
}

// SetLimit changes the target frame rate
func (l *Limiter) SetLimit(limit int) {
	l.limit = limit
	l.next = time.Time{}
}

// Limit returns the target frame rate
func (l *Limiter) Limit() int { return l.limit }

// Wait blocks until the next frame is due. Sleeping stops shortly before
// the deadline and the remainder is spun off for precision.
func (l *Limiter) Wait() {
	d := l.delay()
	if d <= 0 {
		return
	}
	deadline := l.clock.Now().Add(d)
	if d > spinThreshold {
		l.clock.Sleep(d - spinThreshold)
	}
	for l.clock.Until(deadline) > 0 {
		// busy-wait for the final few microseconds
	}
}

// delay schedules the next frame and returns how long until it is due
func (l *Limiter) delay() time.Duration {
	if l.limit <= 0 {
		l.next = time.Time{}
		return 0
	}
	target := time.Second / time.Duration(l.limit)
	now := l.clock.Now()

	if l.next.IsZero() {
		l.next = now.Add(target)
	} else {
		l.next = l.next.Add(target)
	}

	// resync after a hitch instead of rushing to catch up
	if now.Sub(l.next) > target {
		l.next = now
		return 0
	}
	return max(l.next.Sub(now), 0)
}
