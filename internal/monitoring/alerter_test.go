package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panels/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25, LatencyThresholdMS: 2000, MinCalls: 5})

	snap := &MetricsSnapshot{
		Services: []ServiceStats{
			{Service: ServiceFX, Calls: 20, Failures: 2, FailRate: 0.1, AvgLatency: 300 * time.Millisecond},
		},
		Window: 5 * time.Minute,
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25, MinCalls: 5})

	snap := &MetricsSnapshot{
		Services: []ServiceStats{
			{Service: ServiceZipcode, Calls: 10, Failures: 4, FailRate: 0.4},
		},
		Window: 5 * time.Minute,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertServiceFailureRate, alerts[0].Type)
	assert.Equal(t, ServiceZipcode, alerts[0].Service)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "4 failed / 10 calls in last 5m0s")
}

func TestAlerter_Evaluate_BelowMinCalls(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25, MinCalls: 5})

	snap := &MetricsSnapshot{
		Services: []ServiceStats{
			{Service: ServiceCompany, Calls: 2, Failures: 2, FailRate: 1},
		},
	}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_Latency(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25, LatencyThresholdMS: 1000, MinCalls: 1})

	snap := &MetricsSnapshot{
		Services: []ServiceStats{
			{Service: ServiceCompany, Calls: 3, AvgLatency: 1500 * time.Millisecond},
		},
	}
	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertServiceLatency, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "1.5s exceeds threshold 1s")
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertServiceFailureRate, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertServiceFailureRate, Service: ServiceFX, Severity: "high"},
		{Type: AlertServiceFailureRate, Service: ServiceZipcode, Severity: "high"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertServiceLatency}}))
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertServiceLatency}}))
}
