// Package company implements the company suggest panel: a text input that
// waits for a quiet period, queries the company search service and lets the
// user pick one of the candidates.
package company

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/debounce"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
)

// Defaults match the deployed component.
const (
	DefaultDebounce = 350 * time.Millisecond
	DefaultMinChars = 2
	DefaultLimit    = 10
)

// EventSelect is the name of the event emitted when a candidate is picked.
const EventSelect = "companyselect"

// Selected is the companyselect event payload.
type Selected struct {
	Company remote.Candidate `json:"company"`
}

// Name implements notify.Event.
func (Selected) Name() string { return EventSelect }

// Entry is a candidate plus its display label.
type Entry struct {
	remote.Candidate
	StatusLabel string `json:"statusLabel"`
}

// Option configures a Panel.
type Option func(*Panel)

// WithDebounce sets the quiet period before a search is sent.
func WithDebounce(d time.Duration) Option {
	return func(p *Panel) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithMinChars sets the minimum number of non-whitespace characters.
func WithMinChars(n int) Option {
	return func(p *Panel) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// WithLimit sets the result cap sent to the search service.
func WithLimit(n int) Option {
	return func(p *Panel) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithMockMode enables the "test" / "mock:<seed>" keyword bypass.
func WithMockMode(enabled bool) Option {
	return func(p *Panel) {
		p.mock = enabled
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c clock.Clock) Option {
	return func(p *Panel) {
		p.clock = c
	}
}

// WithContext sets the parent context for searches started by the timer.
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

// Panel is the company suggest panel. It is safe for concurrent use.
type Panel struct {
	id       string
	searcher remote.CompanySearcher
	sink     notify.Sink

	delay    time.Duration
	minChars int
	limit    int
	mock     bool
	clock    clock.Clock
	parent   context.Context
	onChange func()

	ctx       context.Context
	cancel    context.CancelFunc
	debouncer *debounce.Debouncer

	mu       sync.Mutex
	query    string
	entries  []Entry
	selected int
	loading  bool
	gen      uint64
}

// New creates a Panel that searches through s and reports to sink.
func New(s remote.CompanySearcher, sink notify.Sink, opts ...Option) *Panel {
	p := &Panel{
		id:       uuid.NewString(),
		searcher: s,
		sink:     sink,
		delay:    DefaultDebounce,
		minChars: DefaultMinChars,
		limit:    DefaultLimit,
		parent:   context.Background(),
		selected: -1,
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

// Input records the new text and schedules a search after the quiet
// period. Text shorter than the minimum clears the candidates instead.
func (p *Panel) Input(text string) {
	p.debouncer.Cancel()

	p.mu.Lock()
	p.query = text
	short := nonSpaceLen(text) < p.minChars
	if short {
		p.entries = nil
		p.selected = -1
		p.loading = false
		p.gen++
	}
	p.mu.Unlock()

	if short {
		p.changed()
		return
	}
	p.debouncer.Trigger(func() { p.search(p.ctx) })
}

// Submit skips the quiet period and searches for the current text now.
func (p *Panel) Submit(ctx context.Context) {
	p.debouncer.Cancel()
	p.search(ctx)
}

func (p *Panel) search(ctx context.Context) {
	p.mu.Lock()
	q := p.query
	p.mu.Unlock()

	trimmed := strings.TrimSpace(q)
	if utf8.RuneCountInString(trimmed) < p.minChars {
		return
	}

	if seed, ok := p.mockSeed(trimmed); ok {
		p.applyMock(seed)
		return
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.loading = true
	p.mu.Unlock()
	p.changed()

	log := zap.L().With(zap.String("panel", p.id), zap.String("query", q))
	log.Debug("company: searching", zap.Int("limit", p.limit))

	res, err := p.searcher.SearchCompanies(ctx, remote.SearchRequest{
		Query:        q,
		Jurisdiction: nil,
		Limit:        p.limit,
	})

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		log.Debug("company: discarding stale response")
		return
	}
	p.loading = false
	if err != nil {
		p.entries = nil
		p.selected = -1
		p.mu.Unlock()
		log.Warn("company: search failed", zap.Error(err))
		p.sink.Toast(notify.Toast{
			Title:   "Search failed",
			Message: remote.Message(err),
			Variant: notify.VariantError,
		})
		p.changed()
		return
	}
	p.setEntriesLocked(res)
	p.mu.Unlock()

	log.Debug("company: results", zap.Int("count", len(res)))
	p.changed()
}

func (p *Panel) setEntriesLocked(cands []remote.Candidate) {
	entries := make([]Entry, len(cands))
	for i, c := range cands {
		entries[i] = Entry{Candidate: c, StatusLabel: StatusLabel(c.Status)}
	}
	p.entries = entries
	p.selected = -1
	if len(entries) > 0 {
		p.selected = 0
	}
}

// StatusLabel is " • <status>" for a non-null status and "" otherwise.
func StatusLabel(status *string) string {
	if status == nil || *status == "" {
		return ""
	}
	return " • " + *status
}

// Select emits companyselect for the candidate at index i. It returns false
// when i does not point at a candidate.
func (p *Panel) Select(i int) bool {
	p.mu.Lock()
	if i < 0 || i >= len(p.entries) {
		p.mu.Unlock()
		return false
	}
	c := p.entries[i].Candidate
	p.selected = i
	p.mu.Unlock()

	p.sink.Emit(Selected{Company: c})
	p.changed()
	return true
}

// Highlight moves the selection index without emitting an event.
func (p *Panel) Highlight(i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.entries) {
		return false
	}
	p.selected = i
	return true
}

// Query returns the current input text.
func (p *Panel) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Entries returns a copy of the displayed candidates.
func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Selected returns the selection index.
func (p *Panel) Selected() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected, p.selected >= 0
}

// Loading reports whether a search is in flight.
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Close cancels the pending search and any in-flight request context.
func (p *Panel) Close() {
	p.debouncer.Cancel()
	p.cancel()
}

func (p *Panel) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
