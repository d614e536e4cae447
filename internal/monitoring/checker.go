package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/config"
)

// Checker runs periodic alert checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Float64("failure_rate_threshold", c.cfg.FailureRateThreshold),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

// Check runs one collect/evaluate/send cycle and returns the alerts raised.
func (c *Checker) Check(ctx context.Context) []Alert {
	return c.check(ctx, zap.L().With(zap.String("component", "monitoring.checker")))
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) []Alert {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		log.Error("monitoring: failed to collect metrics", zap.Error(err))
		return nil
	}

	for _, st := range snap.Services {
		log.Debug("monitoring: service window",
			zap.String("service", st.Service),
			zap.Int("calls", st.Calls),
			zap.Int("failures", st.Failures),
			zap.Float64("cache_hit_rate", st.CacheHitRate),
		)
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}
