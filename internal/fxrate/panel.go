// Package fxrate implements the FX rate panel: two currency selectors, an
// optional amount, and an on-demand fetch that is rate limited rather than
// debounced.
package fxrate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/debounce"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
)

// Defaults match the deployed component.
const (
	DefaultMinGap = 300 * time.Millisecond
	DefaultBase   = "USD"
	DefaultQuote  = "JPY"
)

var currencies = []string{
	"USD", "JPY", "EUR", "GBP", "AUD", "CAD", "CHF", "CNY", "HKD", "SGD",
	"NZD", "SEK", "NOK", "DKK", "KRW", "INR", "MXN", "BRL", "ZAR",
}

// Currencies returns the currency codes offered by the selectors.
func Currencies() []string {
	out := make([]string, len(currencies))
	copy(out, currencies)
	return out
}

// ErrThrottled is returned by Fetch when it is called again inside the
// minimum gap.
var ErrThrottled = eris.New("fx: fetch throttled")

// ValidationError is an input problem caught before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "fx: invalid input: " + e.Message }

// Option configures a Panel.
type Option func(*Panel)

// WithMinGap sets the minimum time between two admitted fetches.
func WithMinGap(d time.Duration) Option {
	return func(p *Panel) {
		if d >= 0 {
			p.minGap = d
		}
	}
}

// WithDefaults sets the currencies restored by Reset.
func WithDefaults(base, quote string) Option {
	return func(p *Panel) {
		if base != "" {
			p.defBase = normalize(base)
		}
		if quote != "" {
			p.defQuote = normalize(quote)
		}
	}
}

// WithClock sets the clock used for the fetch gate.
func WithClock(c clock.Clock) Option {
	return func(p *Panel) {
		p.clock = c
	}
}

// OnChange registers a callback run after every visible state change.
func OnChange(fn func()) Option {
	return func(p *Panel) {
		p.onChange = fn
	}
}

// result is the last successful fetch together with the inputs it was
// made for.
type result struct {
	rate   remote.Rate
	amount *decimal.Decimal
}

// Panel is the FX rate panel. It is safe for concurrent use.
type Panel struct {
	id       string
	fetcher  remote.RateFetcher
	sink     notify.Sink
	minGap   time.Duration
	defBase  string
	defQuote string
	clock    clock.Clock
	onChange func()
	gate     *debounce.Gate

	mu          sync.Mutex
	base        string
	quote       string
	amountInput string
	res         *result
	loading     bool
	gen         uint64
}

// New creates a Panel that fetches through f and reports to sink.
func New(f remote.RateFetcher, sink notify.Sink, opts ...Option) *Panel {
	p := &Panel{
		id:       uuid.NewString(),
		fetcher:  f,
		sink:     sink,
		minGap:   DefaultMinGap,
		defBase:  DefaultBase,
		defQuote: DefaultQuote,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = notify.Discard
	}
	p.gate = debounce.NewGate(p.minGap, debounce.WithClock(p.clock))
	p.base, p.quote = p.defBase, p.defQuote
	return p
}

// SetBase selects the base currency.
func (p *Panel) SetBase(ccy string) {
	p.mu.Lock()
	p.base = normalize(ccy)
	p.mu.Unlock()
	p.changed()
}

// SetQuote selects the quote currency.
func (p *Panel) SetQuote(ccy string) {
	p.mu.Lock()
	p.quote = normalize(ccy)
	p.mu.Unlock()
	p.changed()
}

// SetAmount stores the raw amount input.
func (p *Panel) SetAmount(raw string) {
	p.mu.Lock()
	p.amountInput = raw
	p.mu.Unlock()
	p.changed()
}

// Base returns the selected base currency.
func (p *Panel) Base() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.base
}

// Quote returns the selected quote currency.
func (p *Panel) Quote() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote
}

// AmountInput returns the raw amount input.
func (p *Panel) AmountInput() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.amountInput
}

// Amount parses the amount input. Empty or non-numeric input is no amount;
// blank input is zero.
func (p *Panel) Amount() (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return parseAmount(p.amountInput)
}

// HasAmount reports whether the amount input holds a number.
func (p *Panel) HasAmount() bool {
	_, ok := p.Amount()
	return ok
}

// parseAmount treats only the empty string as no amount. Whitespace-only
// input parses as zero so validation rejects it.
func parseAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Validate checks the inputs the way Fetch does, without fetching.
func (p *Panel) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ve := p.validateLocked(); ve != nil {
		return ve
	}
	return nil
}

func (p *Panel) validateLocked() *ValidationError {
	if p.base == "" || p.quote == "" {
		return &ValidationError{Message: "Select both currencies."}
	}
	if p.base == p.quote {
		return &ValidationError{Message: "Base and quote currency must differ."}
	}
	if amt, ok := parseAmount(p.amountInput); ok && !amt.IsPositive() {
		return &ValidationError{Message: "Amount must be greater than zero."}
	}
	return nil
}

// Fetch requests the latest rate. Calls inside the minimum gap return
// ErrThrottled without doing anything; invalid input and service failures
// are toasted and returned.
func (p *Panel) Fetch(ctx context.Context) error {
	if !p.gate.Allow() {
		return ErrThrottled
	}

	p.mu.Lock()
	if ve := p.validateLocked(); ve != nil {
		p.mu.Unlock()
		p.sink.Toast(notify.Toast{Title: "Invalid input", Message: ve.Message, Variant: notify.VariantError})
		return ve
	}
	req := remote.RateRequest{Base: p.base, Quote: p.quote}
	if amt, ok := parseAmount(p.amountInput); ok {
		req.Amount = &amt
	}
	p.gen++
	gen := p.gen
	p.loading = true
	p.mu.Unlock()
	p.changed()

	log := zap.L().With(
		zap.String("panel", p.id),
		zap.String("base", req.Base),
		zap.String("quote", req.Quote),
	)
	log.Debug("fx: fetching")

	rate, err := p.fetcher.LatestRate(ctx, req)
	if err == nil && rate == nil {
		err = eris.New("fx: empty response")
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		log.Debug("fx: discarding stale response")
		return nil
	}
	p.loading = false
	if err != nil {
		p.mu.Unlock()
		log.Warn("fx: fetch failed", zap.Error(err))
		p.sink.Toast(notify.Toast{Title: "Fetch failed", Message: remote.Message(err), Variant: notify.VariantError})
		p.changed()
		return eris.Wrap(err, "fx: latest rate")
	}
	r := *rate
	if r.Base == "" {
		r.Base = req.Base
	}
	if r.Quote == "" {
		r.Quote = req.Quote
	}
	p.res = &result{rate: r, amount: req.Amount}
	p.mu.Unlock()

	log.Debug("fx: rate", zap.String("rate", r.Rate.String()), zap.String("as_of", r.RateDate))
	p.changed()
	return nil
}

// Reset restores the default currencies and clears amount and result.
func (p *Panel) Reset() {
	p.mu.Lock()
	p.base, p.quote = p.defBase, p.defQuote
	p.amountInput = ""
	p.res = nil
	p.gen++
	p.loading = false
	p.mu.Unlock()
	p.changed()
}

// HasResult reports whether a rate is displayed.
func (p *Panel) HasResult() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.res != nil
}

// Result returns a copy of the displayed rate.
func (p *Panel) Result() (remote.Rate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.res == nil {
		return remote.Rate{}, false
	}
	return p.res.rate, true
}

// Loading reports whether a fetch is in flight.
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// RateDisplay renders "1 USD = 150.12 JPY", or "" without a result.
func (p *Panel) RateDisplay() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.res == nil {
		return ""
	}
	r := p.res.rate
	return "1 " + r.Base + " = " + Format(r.Rate, r.Quote) + " " + r.Quote
}

// ConvertedDisplay renders "1,000.00 USD = 150,120 JPY" when the displayed
// result was fetched with an amount, and "" otherwise.
func (p *Panel) ConvertedDisplay() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.res == nil || p.res.amount == nil || p.res.rate.ConvertedAmount == nil {
		return ""
	}
	r := p.res.rate
	return Format(*p.res.amount, r.Base) + " " + r.Base + " = " +
		Format(*r.ConvertedAmount, r.Quote) + " " + r.Quote
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func normalize(ccy string) string {
	return strings.ToUpper(strings.TrimSpace(ccy))
}
