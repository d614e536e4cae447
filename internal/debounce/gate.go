package debounce

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// Gate suppresses calls that arrive less than a minimum gap after the last
// admitted call. Unlike Debouncer it never delays anything: a call is either
// admitted now or dropped.
type Gate struct {
	clock clock.Clock
	gap   time.Duration

	mu   sync.Mutex
	last time.Time
	used bool
}

// NewGate creates a Gate with the given minimum gap.
func NewGate(gap time.Duration, opts ...Option) *Gate {
	o := buildOptions(opts)
	return &Gate{clock: o.clock, gap: gap}
}

// Allow reports whether a call may proceed and, if so, records its time.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if g.used && now.Sub(g.last) < g.gap {
		return false
	}
	g.last = now
	g.used = true
	return true
}

// Last returns the time of the last admitted call.
func (g *Gate) Last() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.used
}
