// Package monitoring instruments the remote services with Prometheus metrics
// and raises webhook alerts when a service starts failing.
package monitoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/panels/internal/remote"
)

// Service labels.
const (
	ServiceCompany = "company"
	ServiceFX      = "fx"
	ServiceZipcode = "zipcode"
)

// Call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Totals are the running counters for one service.
type Totals struct {
	Calls       int
	Failures    int
	Duration    time.Duration
	CacheHits   int
	CacheMisses int
}

// Metrics records service calls and cache lookups both as Prometheus series
// and as in-process totals read by the Collector.
type Metrics struct {
	calls       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheLookup *prometheus.CounterVec
	inflight    *prometheus.GaugeVec

	mu     sync.Mutex
	totals map[string]*Totals
}

// NewMetrics registers the panel metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panels",
			Name:      "service_calls_total",
			Help:      "Remote service calls by service and outcome.",
		}, []string{"service", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "panels",
			Name:      "service_call_duration_seconds",
			Help:      "Remote service call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		cacheLookup: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "panels",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by service and result.",
		}, []string{"service", "result"}),
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "panels",
			Name:      "service_calls_inflight",
			Help:      "Remote service calls currently running.",
		}, []string{"service"}),
		totals: make(map[string]*Totals),
	}
}

func (m *Metrics) tally(service string) *Totals {
	t, ok := m.totals[service]
	if !ok {
		t = &Totals{}
		m.totals[service] = t
	}
	return t
}

// Observe records one finished call. A canceled context is not a failure.
func (m *Metrics) Observe(service string, d time.Duration, err error) {
	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = OutcomeCanceled
	default:
		outcome = OutcomeError
	}
	m.calls.WithLabelValues(service, outcome).Inc()
	m.duration.WithLabelValues(service).Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tally(service)
	t.Calls++
	t.Duration += d
	if outcome == OutcomeError {
		t.Failures++
	}
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit(service string) {
	m.cacheLookup.WithLabelValues(service, "hit").Inc()
	m.mu.Lock()
	m.tally(service).CacheHits++
	m.mu.Unlock()
}

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss(service string) {
	m.cacheLookup.WithLabelValues(service, "miss").Inc()
	m.mu.Lock()
	m.tally(service).CacheMisses++
	m.mu.Unlock()
}

// Totals returns a copy of the running totals keyed by service.
func (m *Metrics) Totals() map[string]Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Totals, len(m.totals))
	for k, v := range m.totals {
		out[k] = *v
	}
	return out
}

func (m *Metrics) track(service string) func(error) {
	g := m.inflight.WithLabelValues(service)
	g.Inc()
	start := time.Now()
	return func(err error) {
		g.Dec()
		m.Observe(service, time.Since(start), err)
	}
}

// Instrument wraps each service so every call is recorded on m.
func (m *Metrics) Instrument(svc remote.Services) remote.Services {
	out := svc
	if svc.Companies != nil {
		out.Companies = &companies{m: m, next: svc.Companies}
	}
	if svc.Rates != nil {
		out.Rates = &rates{m: m, next: svc.Rates}
	}
	if svc.Postal != nil {
		out.Postal = &postal{m: m, next: svc.Postal}
	}
	return out
}

type companies struct {
	m    *Metrics
	next remote.CompanySearcher
}

func (c *companies) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	done := c.m.track(ServiceCompany)
	out, err := c.next.SearchCompanies(ctx, req)
	done(err)
	return out, err
}

type rates struct {
	m    *Metrics
	next remote.RateFetcher
}

func (r *rates) LatestRate(ctx context.Context, req remote.RateRequest) (*remote.Rate, error) {
	done := r.m.track(ServiceFX)
	out, err := r.next.LatestRate(ctx, req)
	done(err)
	return out, err
}

type postal struct {
	m    *Metrics
	next remote.PostalLookup
}

func (p *postal) Lookup(ctx context.Context, zipcode string) ([]remote.PostalMatch, error) {
	done := p.m.track(ServiceZipcode)
	out, err := p.next.Lookup(ctx, zipcode)
	done(err)
	return out, err
}
