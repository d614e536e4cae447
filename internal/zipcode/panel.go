// Package zipcode implements the postal code autofill panel. A 7 digit
// postal code is looked up after a quiet period and the matching
// prefecture, city and town fill the address fields.
package zipcode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/sells-group/panels/internal/debounce"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
)

// DefaultDebounce matches the deployed component.
const DefaultDebounce = 400 * time.Millisecond

// PostalDigits is the length of a complete postal code.
const PostalDigits = 7

// EventAddressChange is emitted whenever the address fields change.
const EventAddressChange = "addresschange"

// AddressChanged is the addresschange event payload.
type AddressChanged struct {
	Postal     string `json:"postal"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Town       string `json:"town"`
	Street     string `json:"street"`
	Full       string `json:"full"`
}

// Name implements notify.Event.
func (AddressChanged) Name() string { return EventAddressChange }

// Field names an editable address field.
type Field string

const (
	FieldPrefecture Field = "prefecture"
	FieldCity       Field = "city"
	FieldTown       Field = "town"
	FieldStreet     Field = "street"
)

// AddressOption is one match offered when a postal code is ambiguous.
type AddressOption struct {
	Key   string             `json:"key"`
	Label string             `json:"label"`
	Match remote.PostalMatch `json:"match"`
}

// Address is the current value of the address fields.
type Address struct {
	Prefecture string
	City       string
	Town       string
	Street     string
}

// Full concatenates the fields into one address line.
func (a Address) Full() string {
	return a.Prefecture + a.City + a.Town + a.Street
}

// Option configures a Panel.
type Option func(*Panel)

// WithDebounce sets the quiet period before a lookup is sent.
func WithDebounce(d time.Duration) Option {
	return func(p *Panel) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c clock.Clock) Option {
	return func(p *Panel) {
		p.clock = c
	}
}

// WithContext sets the parent context for lookups started by the timer.
func WithContext(ctx context.Context) Option {
	return func(p *Panel) {
		p.parent = ctx
	}
}

// OnChange registers a callback run after every visible state change.
func OnChange(fn func()) Option {
	return func(p *Panel) {
		p.onChange = fn
	}
}

// Panel is the postal code autofill panel. It is safe for concurrent use.
type Panel struct {
	id       string
	lookup   remote.PostalLookup
	sink     notify.Sink
	delay    time.Duration
	clock    clock.Clock
	parent   context.Context
	onChange func()

	ctx       context.Context
	cancel    context.CancelFunc
	debouncer *debounce.Debouncer

	mu       sync.Mutex
	postal   string
	addr     Address
	options  []AddressOption
	selected string
	loading  bool
	gen      uint64
}

// New creates a Panel that looks postal codes up through l and reports to
// sink.
func New(l remote.PostalLookup, sink notify.Sink, opts ...Option) *Panel {
	p := &Panel{
		id:     uuid.NewString(),
		lookup: l,
		sink:   sink,
		delay:  DefaultDebounce,
		parent: context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = notify.Discard
	}
	p.ctx, p.cancel = context.WithCancel(p.parent)
	p.debouncer = debounce.New(p.delay, debounce.WithClock(p.clock))
	return p
}

// OptionLabel is the display label of a match: "<full>（<zipcode>）".
func OptionLabel(m remote.PostalMatch) string {
	return fmt.Sprintf("%s（%s）", m.Full, m.Zipcode)
}

// Sanitize folds full-width digits to ASCII and drops every non-digit.
func Sanitize(raw string) string {
	folded := width.Fold.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PostalInput records the raw postal code and schedules a lookup after the
// quiet period.
func (p *Panel) PostalInput(text string) {
	p.mu.Lock()
	p.postal = text
	p.mu.Unlock()

	p.debouncer.Trigger(func() { p.settle(p.ctx) })
	p.changed()
}

// Submit skips the quiet period.
func (p *Panel) Submit(ctx context.Context) {
	p.debouncer.Cancel()
	p.settle(ctx)
}

func (p *Panel) settle(ctx context.Context) {
	p.mu.Lock()
	raw := p.postal
	if len(Sanitize(raw)) != PostalDigits {
		p.options = nil
		p.selected = ""
		p.gen++
		p.loading = false
		p.mu.Unlock()
		p.changed()
		return
	}
	p.gen++
	gen := p.gen
	p.loading = true
	p.mu.Unlock()
	p.changed()

	// The backend only accepts ASCII digits; full-width input is folded,
	// everything else is sent as typed.
	p.search(ctx, width.Fold.String(raw), gen)
}

func (p *Panel) search(ctx context.Context, raw string, gen uint64) {
	log := zap.L().With(zap.String("panel", p.id), zap.String("postal", raw))
	log.Debug("zipcode: looking up")

	matches, err := p.lookup.Lookup(ctx, raw)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		log.Debug("zipcode: discarding stale response")
		return
	}
	p.loading = false

	if err != nil {
		p.mu.Unlock()
		log.Warn("zipcode: lookup failed", zap.Error(err))
		p.sink.Toast(notify.Toast{Title: "Lookup failed", Message: remote.Message(err), Variant: notify.VariantError})
		p.changed()
		return
	}
	if len(matches) == 0 {
		p.mu.Unlock()
		log.Debug("zipcode: no match")
		p.sink.Toast(notify.Toast{
			Title:   "Not found",
			Message: "No address matches this postal code.",
			Variant: notify.VariantWarning,
		})
		p.changed()
		return
	}

	p.options = make([]AddressOption, len(matches))
	for i, m := range matches {
		p.options[i] = AddressOption{
			Key:   strconv.Itoa(i),
			Label: OptionLabel(m),
			Match: m,
		}
	}
	if len(p.options) > 1 {
		p.selected = p.options[0].Key
	} else {
		p.selected = ""
	}
	ev := p.applyLocked(matches[0])
	p.mu.Unlock()

	log.Debug("zipcode: matches", zap.Int("count", len(matches)))
	p.sink.Emit(ev)
	p.changed()
}

// Select applies the option with the given key. It returns false when no
// option has that key.
func (p *Panel) Select(key string) bool {
	p.mu.Lock()
	var ev AddressChanged
	found := false
	for _, o := range p.options {
		if o.Key == key {
			p.selected = key
			ev = p.applyLocked(o.Match)
			found = true
			break
		}
	}
	p.mu.Unlock()

	if !found {
		return false
	}
	p.sink.Emit(ev)
	p.changed()
	return true
}

// Edit sets one address field by hand and re-emits addresschange.
func (p *Panel) Edit(field Field, value string) error {
	p.mu.Lock()
	switch field {
	case FieldPrefecture:
		p.addr.Prefecture = value
	case FieldCity:
		p.addr.City = value
	case FieldTown:
		p.addr.Town = value
	case FieldStreet:
		p.addr.Street = value
	default:
		p.mu.Unlock()
		return eris.Errorf("zipcode: unknown field %q", field)
	}
	ev := p.eventLocked()
	p.mu.Unlock()

	p.sink.Emit(ev)
	p.changed()
	return nil
}

// applyLocked fills prefecture, city and town. Street is left for the user.
func (p *Panel) applyLocked(m remote.PostalMatch) AddressChanged {
	p.addr.Prefecture = m.Prefecture
	p.addr.City = m.City
	p.addr.Town = m.Town
	return p.eventLocked()
}

func (p *Panel) eventLocked() AddressChanged {
	return AddressChanged{
		Postal:     Sanitize(p.postal),
		Prefecture: p.addr.Prefecture,
		City:       p.addr.City,
		Town:       p.addr.Town,
		Street:     p.addr.Street,
		Full:       p.addr.Full(),
	}
}

// Postal returns the raw postal input.
func (p *Panel) Postal() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.postal
}

// Address returns the current address fields.
func (p *Panel) Address() Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Options returns a copy of the offered address options.
func (p *Panel) Options() []AddressOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AddressOption, len(p.options))
	copy(out, p.options)
	return out
}

// HasOptions reports whether there is a choice to make, i.e. more than one
// option.
func (p *Panel) HasOptions() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.options) > 1
}

// SelectedKey returns the key of the selected option, if any.
func (p *Panel) SelectedKey() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected, p.selected != ""
}

// Loading reports whether a lookup is in flight.
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Close cancels the pending lookup and any in-flight request context.
func (p *Panel) Close() {
	p.debouncer.Cancel()
	p.cancel()
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}
