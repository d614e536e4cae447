package tui

import (
	"sync"

	"github.com/sells-group/panels/internal/notify"
)

// statusSink keeps the latest toast and event for the footer and wakes the
// program whenever either changes.
type statusSink struct {
	signal func()

	mu    sync.Mutex
	toast *notify.Toast
	event notify.Event
}

func (s *statusSink) Toast(t notify.Toast) {
	s.mu.Lock()
	s.toast = &t
	s.mu.Unlock()
	s.signal()
}

func (s *statusSink) Emit(e notify.Event) {
	s.mu.Lock()
	s.event = e
	s.mu.Unlock()
	s.signal()
}

func (s *statusSink) last() (*notify.Toast, notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toast, s.event
}

// frame is the heat map page output. Each paint is a single write, so the
// last write is the current picture.
type frame struct {
	mu  sync.Mutex
	buf []byte
}

func (f *frame) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.buf = append(f.buf[:0], p...)
	f.mu.Unlock()
	return len(p), nil
}

func (f *frame) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.buf)
}
