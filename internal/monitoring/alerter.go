package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertServiceFailureRate AlertType = "service_failure_rate"
	AlertServiceLatency     AlertType = "service_latency"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Service   string         `json:"service"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Services with fewer than MinCalls calls in the window are skipped.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	minCalls := a.cfg.MinCalls
	if minCalls <= 0 {
		minCalls = 1
	}
	latency := time.Duration(a.cfg.LatencyThresholdMS) * time.Millisecond

	for _, st := range snap.Services {
		if st.Calls < minCalls {
			continue
		}

		if st.FailRate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertServiceFailureRate,
				Service:  st.Service,
				Severity: "high",
				Message: fmt.Sprintf(
					"%s failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d calls in last %s)",
					st.Service, st.FailRate*100, a.cfg.FailureRateThreshold*100,
					st.Failures, st.Calls, snap.Window.Round(time.Second),
				),
				Details: map[string]any{
					"failure_rate": st.FailRate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       st.Failures,
					"calls":        st.Calls,
				},
				Timestamp: snap.CollectedAt,
			})
		}

		if latency > 0 && st.AvgLatency > latency {
			alerts = append(alerts, Alert{
				Type:     AlertServiceLatency,
				Service:  st.Service,
				Severity: "medium",
				Message: fmt.Sprintf(
					"%s average latency %s exceeds threshold %s",
					st.Service, st.AvgLatency.Round(time.Millisecond), latency,
				),
				Details: map[string]any{
					"avg_latency_ms": st.AvgLatency.Milliseconds(),
					"threshold_ms":   a.cfg.LatencyThresholdMS,
					"calls":          st.Calls,
				},
				Timestamp: snap.CollectedAt,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("service", alert.Service),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
