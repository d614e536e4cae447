package heatmap

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults match the deployed component.
const (
	DefaultDays     = 14
	DefaultScript   = CalendarGlobal
	DefaultStyleRef = BuiltinPrefix + "default"
	maxValue        = 8
)

// Option configures a Widget.
type Option func(*Widget)

// WithAssets sets the script and style references to load.
func WithAssets(script, style string) Option {
	return func(w *Widget) {
		if script != "" {
			w.script = script
		}
		if style != "" {
			w.style = style
		}
	}
}

// WithGlobal sets the constructor name the script is expected to define.
func WithGlobal(name string) Option {
	return func(w *Widget) {
		if name != "" {
			w.global = name
		}
	}
}

// WithDays sets how many days of data are generated.
func WithDays(n int) Option {
	return func(w *Widget) {
		if n > 0 {
			w.days = n
		}
	}
}

// WithClock sets the clock that defines "today".
func WithClock(c clock.Clock) Option {
	return func(w *Widget) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithRand sets the random source for generated values.
func WithRand(r *rand.Rand) Option {
	return func(w *Widget) {
		if r != nil {
			w.rand = r
		}
	}
}

// Widget loads the chart assets once and paints generated activity data.
type Widget struct {
	id     string
	page   *Page
	loader Loader
	script string
	style  string
	global string
	days   int
	clock  clock.Clock

	once sync.Once

	mu      sync.Mutex
	rand    *rand.Rand
	loading bool
	chart   Chart
	data    []Datum
	painted bool
}

// New creates a Widget painting onto p with assets from l.
func New(p *Page, l Loader, opts ...Option) *Widget {
	w := &Widget{
		id:      uuid.NewString(),
		page:    p,
		loader:  l,
		script:  DefaultScript,
		style:   DefaultStyleRef,
		global:  CalendarGlobal,
		days:    DefaultDays,
		clock:   clock.New(),
		loading: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rand == nil {
		w.rand = rand.New(rand.NewSource(w.clock.Now().UnixNano()))
	}
	return w
}

// Render loads the assets and paints on the first call. Later calls do
// nothing. Failures are logged, never returned, and loading is always
// cleared once the sequence settles.
func (w *Widget) Render(ctx context.Context) {
	w.once.Do(func() {
		defer w.setLoading(false)
		w.render(ctx)
	})
}

func (w *Widget) render(ctx context.Context) {
	log := zap.L().With(zap.String("widget", w.id))
	log.Debug("heatmap: loading assets", zap.String("script", w.script), zap.String("style", w.style))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.loader.LoadStyle(gctx, w.page, w.style) })
	g.Go(func() error { return w.loader.LoadScript(gctx, w.page, w.script) })
	if err := g.Wait(); err != nil {
		log.Error("heatmap: load error", zap.Error(err))
		return
	}

	if _, ok := w.page.Global(w.global); !ok {
		log.Error("heatmap: script does not define the chart constructor", zap.String("global", w.global))
		return
	}

	w.Repaint(ctx)
}

// Repaint generates fresh data and paints a new chart, destroying the
// previous one. Paint errors are logged.
func (w *Widget) Repaint(ctx context.Context) {
	log := zap.L().With(zap.String("widget", w.id))

	ctor, ok := w.page.Global(w.global)
	if !ok {
		log.Error("heatmap: chart constructor not loaded", zap.String("global", w.global))
		return
	}

	today := w.clock.Now()
	data, hi := w.generate(today)

	w.mu.Lock()
	if w.chart != nil {
		w.chart.Destroy()
	}
	chart := ctor(w.page)
	w.chart = chart
	w.data = data
	w.mu.Unlock()

	if err := chart.Paint(ctx, Config(today, data, hi)); err != nil {
		log.Error("heatmap: paint error", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.painted = true
	w.mu.Unlock()
	log.Debug("heatmap: paint done", zap.Int("points", len(data)))
}

// generate returns one value in [0, 8] per day ending today, newest first,
// and the largest value (1 when every value is 0).
func (w *Widget) generate(today time.Time) ([]Datum, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data := make([]Datum, w.days)
	hi := 0
	for i := range data {
		v := w.rand.Intn(maxValue + 1)
		data[i] = Datum{Date: today.AddDate(0, 0, -i).Format(time.DateOnly), Value: v}
		hi = max(hi, v)
	}
	if hi == 0 {
		hi = 1
	}
	return data, hi
}

// Config builds the fixed paint configuration for the given data.
func Config(today time.Time, data []Datum, hi int) PaintConfig {
	return PaintConfig{
		Range:     1,
		Domain:    DomainConfig{Type: "month"},
		SubDomain: SubDomainConfig{Type: "day", Width: 14, Height: 14, Radius: 2, Gutter: 4},
		Date: DateConfig{
			Start:  time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()),
			Locale: "ja",
		},
		Data:  DataConfig{Source: data, X: "date", Y: "value"},
		Scale: ScaleConfig{Color: ColorScale{Type: "linear", Domain: [2]int{0, hi}}},
	}
}

// Loading reports whether the first render has not settled yet.
func (w *Widget) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// Painted reports whether a chart was painted successfully.
func (w *Widget) Painted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.painted
}

// Data returns the points of the last paint.
func (w *Widget) Data() []Datum {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Datum, len(w.data))
	copy(out, w.data)
	return out
}

// Close destroys the current chart.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.chart != nil {
		w.chart.Destroy()
		w.chart = nil
	}
}

func (w *Widget) setLoading(v bool) {
	w.mu.Lock()
	w.loading = v
	w.mu.Unlock()
}
