package frame

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Profiler accumulates named CPU timings for the current frame
type Profiler struct {
	clock clock.Clock

	mu     sync.Mutex
	totals map[string]time.Duration
}

// NewProfiler creates a profiler reading time from clk
func NewProfiler(clk clock.Clock) *Profiler {
	if clk == nil {
		clk = clock.New()
	}
	return &Profiler{clock: clk, totals: make(map[string]time.Duration)}
}

// Track returns a stop function that records the elapsed time under name.
// Usage: defer p.Track("assets.CheckForChanges")()
func (p *Profiler) Track(name string) func() {
	start := p.clock.Now()
	return func() {
		d := p.clock.Since(start)
		p.mu.Lock()
		p.totals[name] += d
		p.mu.Unlock()
	}
}

// Reset clears the totals. Call at the start of each frame.
func (p *Profiler) Reset() {
	p.mu.Lock()
	clear(p.totals)
	p.mu.Unlock()
}

// Snapshot returns a copy of the current totals
func (p *Profiler) Snapshot() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.totals))
	for k, v := range p.totals {
		out[k] = v
	}
	return out
}

// SumWithPrefix adds up every total whose name starts with prefix
func (p *Profiler) SumWithPrefix(prefix string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sum time.Duration
	for k, v := range p.totals {
		if strings.HasPrefix(k, prefix) {
			sum += v
		}
	}
	return sum
}

// TopN formats the n largest totals, e.g. "assets.CheckForChanges:1.2ms".
// Ties are broken by name.
func (p *Profiler) TopN(n int) string {
	type pair struct {
		name string
		dur  time.Duration
	}
	ss := p.Snapshot()
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%.1fms", e.name, float64(e.dur.Microseconds())/1000))
	}
	return strings.Join(parts, ", ")
}
