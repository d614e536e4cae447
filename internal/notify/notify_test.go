package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	name  string
	value int
}

func (e testEvent) Name() string { return e.name }

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewBus()
	var got []int
	b.Subscribe("companyselect", func(e Event) { got = append(got, 1) })
	b.Subscribe("companyselect", func(e Event) { got = append(got, 2) })
	b.Subscribe("addresschange", func(e Event) { got = append(got, 99) })

	b.Emit(testEvent{name: "companyselect"})
	assert.Equal(t, []int{1, 2}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	unsub := b.Subscribe("x", func(Event) { calls++ })
	b.Emit(testEvent{name: "x"})
	unsub()
	b.Emit(testEvent{name: "x"})
	assert.Equal(t, 1, calls)

	toasts := 0
	unsubToast := b.OnToast(func(Toast) { toasts++ })
	b.Toast(Toast{Title: "a"})
	unsubToast()
	b.Toast(Toast{Title: "b"})
	assert.Equal(t, 1, toasts)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	b := NewBus()
	reached := false
	b.Subscribe("x", func(Event) { panic("boom") })
	b.Subscribe("x", func(Event) { reached = true })

	assert.NotPanics(t, func() { b.Emit(testEvent{name: "x"}) })
	assert.True(t, reached)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	s := Multi(a, b, Discard, LogSink{Panel: "test"})

	s.Toast(Toast{Title: "t", Message: "m", Variant: VariantWarning})
	s.Emit(testEvent{name: "e", value: 7})

	for _, r := range []*Recorder{a, b} {
		require.Len(t, r.Toasts(), 1)
		require.Len(t, r.Events(), 1)
		assert.Equal(t, testEvent{name: "e", value: 7}, r.Events()[0])
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.LastToast()
	assert.False(t, ok)

	r.Toast(Toast{Title: "first"})
	r.Toast(Toast{Title: "second", Variant: VariantError})
	last, ok := r.LastToast()
	require.True(t, ok)
	assert.Equal(t, "second", last.Title)
	assert.Equal(t, VariantError, last.Variant)

	r.Reset()
	assert.Empty(t, r.Toasts())
	assert.Empty(t, r.Events())
}
