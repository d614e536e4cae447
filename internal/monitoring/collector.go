package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/facebookgo/clock"
)

// ServiceStats is one service's activity within a collection window.
type ServiceStats struct {
	Service      string        `json:"service"`
	Calls        int           `json:"calls"`
	Failures     int           `json:"failures"`
	FailRate     float64       `json:"fail_rate"`
	AvgLatency   time.Duration `json:"avg_latency"`
	CacheHits    int           `json:"cache_hits"`
	CacheMisses  int           `json:"cache_misses"`
	CacheHitRate float64       `json:"cache_hit_rate"`
}

// MetricsSnapshot holds the activity since the previous collection.
type MetricsSnapshot struct {
	Services    []ServiceStats `json:"services"`
	Window      time.Duration  `json:"window"`
	CollectedAt time.Time      `json:"collected_at"`
}

// Service returns the stats for name, or a zero value.
func (s *MetricsSnapshot) Service(name string) ServiceStats {
	for _, st := range s.Services {
		if st.Service == name {
			return st
		}
	}
	return ServiceStats{Service: name}
}

// Collector turns the running totals of a Metrics into windowed snapshots.
type Collector struct {
	metrics *Metrics
	clock   clock.Clock
	prev    map[string]Totals
	last    time.Time
}

// NewCollector creates a collector whose first window starts now.
func NewCollector(m *Metrics, clk clock.Clock) *Collector {
	if clk == nil {
		clk = clock.New()
	}
	return &Collector{
		metrics: m,
		clock:   clk,
		prev:    m.Totals(),
		last:    clk.Now(),
	}
}

// Collect returns the activity since the previous call and starts a new window.
func (c *Collector) Collect(_ context.Context) (*MetricsSnapshot, error) {
	now := c.clock.Now()
	cur := c.metrics.Totals()
	snap := &MetricsSnapshot{
		Window:      now.Sub(c.last),
		CollectedAt: now.UTC(),
	}

	for name, t := range cur {
		p := c.prev[name]
		st := ServiceStats{
			Service:     name,
			Calls:       t.Calls - p.Calls,
			Failures:    t.Failures - p.Failures,
			CacheHits:   t.CacheHits - p.CacheHits,
			CacheMisses: t.CacheMisses - p.CacheMisses,
		}
		if st.Calls > 0 {
			st.FailRate = float64(st.Failures) / float64(st.Calls)
			st.AvgLatency = (t.Duration - p.Duration) / time.Duration(st.Calls)
		}
		if lookups := st.CacheHits + st.CacheMisses; lookups > 0 {
			st.CacheHitRate = float64(st.CacheHits) / float64(lookups)
		}
		snap.Services = append(snap.Services, st)
	}
	sort.Slice(snap.Services, func(i, j int) bool {
		return snap.Services[i].Service < snap.Services[j].Service
	})

	c.prev = cur
	c.last = now
	return snap, nil
}
