package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/sells-group/panels/internal/cache"
	"github.com/sells-group/panels/internal/config"
	"github.com/sells-group/panels/internal/monitoring"
	"github.com/sells-group/panels/internal/remote"
)

type stubServices struct {
	calls      atomic.Int32
	lastLimit  atomic.Int32
	candidates []remote.Candidate
	matches    []remote.PostalMatch
	err        error
}

func (s *stubServices) SearchCompanies(_ context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	s.calls.Add(1)
	s.lastLimit.Store(int32(req.Limit))
	return s.candidates, s.err
}

func (s *stubServices) LatestRate(_ context.Context, req remote.RateRequest) (*remote.Rate, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	r := decimal.RequireFromString("150.1234")
	out := &remote.Rate{Base: req.Base, Quote: req.Quote, Rate: r, RateDate: "2026-10-16"}
	if req.Amount != nil {
		conv := req.Amount.Mul(r)
		out.ConvertedAmount = &conv
	}
	return out, nil
}

func (s *stubServices) Lookup(context.Context, string) ([]remote.PostalMatch, error) {
	s.calls.Add(1)
	return s.matches, s.err
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.Backend.Driver = "direct"
	c.Cache.Driver = "memory"
	c.Cache.TTLSecs = 60
	c.Company.MinChars = 2
	c.Company.Limit = 10
	c.FX.DefaultBase = "USD"
	c.FX.DefaultQuote = "JPY"
	c.HeatMap.Days = 14
	c.HeatMap.Script = "CalHeatmap"
	c.HeatMap.Style = "builtin:default"
	c.Server.Port = 8080
	return c
}

// withConfig installs c as the command config for the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func newTestEnv(t *testing.T, stub *stubServices) *panelEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	store := cache.NewMemory(16, time.Minute)
	svc := remote.Services{Companies: stub, Rates: stub, Postal: stub}
	env := &panelEnv{
		Services: cache.Wrap(metrics.Instrument(svc), store, metrics),
		Metrics:  metrics,
		Registry: reg,
		Cache:    store,
	}
	t.Cleanup(env.Close)
	return env
}
