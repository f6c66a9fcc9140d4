package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/research"
)

var eventTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func completed(s research.EventSummary) research.Event {
	return research.Event{
		Type:      research.EventCompleted,
		RunID:     "run-1",
		Timestamp: eventTime,
		States:    []model.State{model.StateNJ, model.StatePA},
		Summary:   &s,
	}
}

func TestAlerter_Evaluate(t *testing.T) {
	cfg := config.MonitoringConfig{MinBetterOffers: 2, MinMissingCasinos: 3}

	tests := []struct {
		name  string
		cfg   config.MonitoringConfig
		event research.Event
		want  []AlertType
	}{
		{
			name:  "started is ignored",
			cfg:   cfg,
			event: research.Event{Type: research.EventStarted, RunID: "run-1"},
		},
		{
			name:  "failure always alerts",
			cfg:   config.MonitoringConfig{},
			event: research.Event{Type: research.EventFailed, RunID: "run-1", Error: "xano down"},
			want:  []AlertType{AlertResearchFailed},
		},
		{
			name:  "below thresholds",
			cfg:   cfg,
			event: completed(research.EventSummary{BetterOffers: 1, MissingCasinos: 2}),
		},
		{
			name:  "better plus new offers reach threshold",
			cfg:   cfg,
			event: completed(research.EventSummary{BetterOffers: 1, NewOffers: 1}),
			want:  []AlertType{AlertBetterOffers},
		},
		{
			name:  "both thresholds",
			cfg:   cfg,
			event: completed(research.EventSummary{BetterOffers: 4, MissingCasinos: 3}),
			want:  []AlertType{AlertBetterOffers, AlertMissingCasinos},
		},
		{
			name:  "zero thresholds disable completion alerts",
			cfg:   config.MonitoringConfig{},
			event: completed(research.EventSummary{BetterOffers: 10, MissingCasinos: 10}),
		},
		{
			name:  "completed without summary",
			cfg:   cfg,
			event: research.Event{Type: research.EventCompleted, RunID: "run-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := NewAlerter(tt.cfg).Evaluate(tt.event)
			var got []AlertType
			for _, a := range alerts {
				got = append(got, a.Type)
				assert.Equal(t, "run-1", a.RunID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlerter_Evaluate_Messages(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{MinBetterOffers: 1})

	alerts := a.Evaluate(completed(research.EventSummary{BetterOffers: 2, NewOffers: 1}))
	require.Len(t, alerts, 1)
	assert.Equal(t, "2 better and 1 new offer(s) found in NJ, PA", alerts[0].Message)
	assert.Equal(t, eventTime, alerts[0].Timestamp)

	failed := a.Evaluate(research.Event{Type: research.EventFailed, RunID: "run-9", Error: "boom"})
	require.Len(t, failed, 1)
	assert.Equal(t, "Research run run-9 failed for all states: boom", failed[0].Message)
	assert.Equal(t, "high", failed[0].Severity)
}

func TestAlerter_Notify(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Alert
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		mu.Lock()
		received = append(received, alert)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL, MinBetterOffers: 1})
	a.Notify(research.Event{Type: research.EventStarted, RunID: "run-1"})
	a.Notify(completed(research.EventSummary{BetterOffers: 3}))
	a.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, AlertBetterOffers, received[0].Type)
	assert.Equal(t, float64(3), received[0].Details["better_offers"])
}

func TestAlerter_Notify_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{MinBetterOffers: 1})
	a.Notify(completed(research.EventSummary{BetterOffers: 3}))
	a.Wait()
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	alerts := []Alert{
		{Type: AlertResearchFailed, Severity: "high", Message: "test alert 1"},
		{Type: AlertBetterOffers, Severity: "info", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertResearchFailed, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertResearchFailed, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestNewAlerter_Timeout(t *testing.T) {
	assert.Equal(t, defaultTimeout, NewAlerter(config.MonitoringConfig{}).client.Timeout)
	assert.Equal(t, 3*time.Second, NewAlerter(config.MonitoringConfig{TimeoutSecs: 3}).client.Timeout)
}
