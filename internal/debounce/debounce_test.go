package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func TestDebouncer_RunsAfterQuietPeriod(t *testing.T) {
	mock := clock.NewMock()
	d := New(350*time.Millisecond, WithClock(mock))

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	assert.True(t, d.Pending())

	mock.Add(349 * time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 30*time.Millisecond, tick)

	mock.Add(time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.False(t, d.Pending())
}

func TestDebouncer_BurstCollapsesToOneCall(t *testing.T) {
	mock := clock.NewMock()
	d := New(350*time.Millisecond, WithClock(mock))

	var calls atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
		mock.Add(100 * time.Millisecond)
	}

	mock.Add(350 * time.Millisecond)
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 30*time.Millisecond, tick)
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncer_Cancel(t *testing.T) {
	mock := clock.NewMock()
	d := New(400*time.Millisecond, WithClock(mock))

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	assert.False(t, d.Pending())

	mock.Add(time.Second)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 30*time.Millisecond, tick)
}

func TestDebouncer_RealClock(t *testing.T) {
	d := New(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, d.Delay())

	done := make(chan struct{})
	d.Trigger(func() { close(done) })

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("debounced task did not run")
	}
}

func TestGate_AdmitsFirstCall(t *testing.T) {
	mock := clock.NewMock()
	g := NewGate(300*time.Millisecond, WithClock(mock))

	_, used := g.Last()
	assert.False(t, used)
	assert.True(t, g.Allow())
}

func TestGate_DropsCallsInsideGap(t *testing.T) {
	mock := clock.NewMock()
	g := NewGate(300*time.Millisecond, WithClock(mock))

	assert.True(t, g.Allow())
	mock.Add(299 * time.Millisecond)
	assert.False(t, g.Allow())

	// A dropped call does not move the window.
	mock.Add(time.Millisecond)
	assert.True(t, g.Allow())

	last, used := g.Last()
	assert.True(t, used)
	assert.Equal(t, mock.Now(), last)
}
