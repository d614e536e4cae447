// Package notify carries what a panel tells its host: transient toasts and
// named component events such as "companyselect" or "addresschange".
package notify

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Variant is the severity of a toast.
type Variant string

const (
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// Toast is a transient user-facing notification.
type Toast struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Variant Variant `json:"variant"`
}

// Event is an outbound component event consumed by the host.
type Event interface {
	Name() string
}

// Sink receives toasts and events from a panel.
type Sink interface {
	Toast(Toast)
	Emit(Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Toast(Toast) {}
func (discard) Emit(Event)  {}

// Bus delivers toasts and events synchronously to subscribers in
// registration order. A panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*eventHandler
	toasts   []*toastHandler
}

type eventHandler struct{ fn func(Event) }
type toastHandler struct{ fn func(Toast) }

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]*eventHandler)}
}

// Subscribe registers fn for events with the given name and returns an
// unsubscribe function.
func (b *Bus) Subscribe(name string, fn func(Event)) func() {
	h := &eventHandler{fn: fn}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], h)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.handlers[name]
		for i := range hs {
			if hs[i] == h {
				b.handlers[name] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// OnToast registers fn for every toast and returns an unsubscribe function.
func (b *Bus) OnToast(fn func(Toast)) func() {
	h := &toastHandler{fn: fn}
	b.mu.Lock()
	b.toasts = append(b.toasts, h)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.toasts {
			if b.toasts[i] == h {
				b.toasts = append(b.toasts[:i:i], b.toasts[i+1:]...)
				return
			}
		}
	}
}

// Toast implements Sink.
func (b *Bus) Toast(t Toast) {
	b.mu.RLock()
	hs := make([]*toastHandler, len(b.toasts))
	copy(hs, b.toasts)
	b.mu.RUnlock()

	for _, h := range hs {
		safeCall("toast", func() { h.fn(t) })
	}
}

// Emit implements Sink.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	src := b.handlers[e.Name()]
	hs := make([]*eventHandler, len(src))
	copy(hs, src)
	b.mu.RUnlock()

	for _, h := range hs {
		safeCall(e.Name(), func() { h.fn(e) })
	}
}

func safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("notify: handler panic",
				zap.String("event", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}

// Multi fans out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Toast(t Toast) {
	for _, s := range m {
		s.Toast(t)
	}
}

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
