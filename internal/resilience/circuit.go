// Package resilience stops calling a remote service for a while after it
// fails repeatedly, so the panels fail fast instead of waiting on timeouts.
package resilience

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the state of a circuit.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the reset timeout has passed.
	Open
	// HalfOpen lets probe calls through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected by an open circuit.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Config controls a Breaker. Zero values take the defaults.
type Config struct {
	// FailureThreshold consecutive tripping failures open the circuit. Default 5.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open. Default 30s.
	ResetTimeout time.Duration
	// Probes is the number of successes in half-open needed to close. Default 1.
	Probes int
	// ShouldTrip decides whether an error counts. Default ShouldTrip.
	ShouldTrip func(err error) bool
	// Clock is the time source. Default wall clock.
	Clock clock.Clock
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 1
	}
	if c.ShouldTrip == nil {
		c.ShouldTrip = ShouldTrip
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return c
}

// Breaker is a circuit breaker for one service.
type Breaker struct {
	name string
	cfg  Config

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	successes int
}

// NewBreaker creates a closed breaker for the named service.
func NewBreaker(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults()}
}

// Allow reports whether a call may go out now. An open circuit whose reset
// timeout has passed moves to half-open and allows the call as a probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.cfg.Clock.Now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		b.transition(HalfOpen)
	}
	return nil
}

// Record feeds the result of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.Probes {
				b.transition(Closed)
			}
		case Closed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(Open)
		}
	case HalfOpen:
		b.transition(Open)
	}
}

// State returns the current state, reporting half-open once an open
// circuit's reset timeout has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.cfg.Clock.Now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Reset forces the circuit closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		b.transition(Closed)
	}
	b.failures = 0
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.successes = 0
	switch to {
	case Open:
		b.openedAt = b.cfg.Clock.Now()
	case Closed:
		b.failures = 0
	}
	zap.L().Info("resilience: circuit state change",
		zap.String("service", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
}
