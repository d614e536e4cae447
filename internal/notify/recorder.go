package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Recorder keeps every toast and event it receives. It is safe for
// concurrent use and is what the one-shot CLI commands and tests read from.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
	events []Event
}

// Toast implements Sink.
func (r *Recorder) Toast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// LastToast returns the most recent toast.
func (r *Recorder) LastToast() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
	r.events = nil
}

// LogSink writes toasts and events to the global zap logger.
type LogSink struct {
	// Panel is added to every log line.
	Panel string
}

// Toast implements Sink.
func (s LogSink) Toast(t Toast) {
	fields := []zap.Field{
		zap.String("panel", s.Panel),
		zap.String("title", t.Title),
		zap.String("message", t.Message),
	}
	switch t.Variant {
	case VariantError:
		zap.L().Error("toast", fields...)
	case VariantWarning:
		zap.L().Warn("toast", fields...)
	default:
		zap.L().Info("toast", fields...)
	}
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	zap.L().Debug("event",
		zap.String("panel", s.Panel),
		zap.String("event", e.Name()),
		zap.Any("detail", e),
	)
}
