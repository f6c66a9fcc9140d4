// Package monitoring turns research run events into webhook alerts.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/research"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertResearchFailed AlertType = "research_failed"
	AlertBetterOffers   AlertType = "better_offers"
	AlertMissingCasinos AlertType = "missing_casinos"
)

const defaultTimeout = 10 * time.Second

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates research events against configured thresholds and
// posts alerts to a webhook. It implements research.Notifier.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	wg     sync.WaitGroup
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Evaluate returns the alerts triggered by e.
func (a *Alerter) Evaluate(e research.Event) []Alert {
	states := joinStates(e)

	switch e.Type {
	case research.EventFailed:
		return []Alert{{
			Type:      AlertResearchFailed,
			Severity:  "high",
			Message:   fmt.Sprintf("Research run %s failed for %s: %s", e.RunID, states, e.Error),
			RunID:     e.RunID,
			Details:   map[string]any{"error": e.Error, "states": e.States},
			Timestamp: e.Timestamp,
		}}
	case research.EventCompleted:
		if e.Summary == nil {
			return nil
		}
	default:
		return nil
	}

	var alerts []Alert
	s := e.Summary
	if a.cfg.MinBetterOffers > 0 && s.BetterOffers+s.NewOffers >= a.cfg.MinBetterOffers {
		alerts = append(alerts, Alert{
			Type:     AlertBetterOffers,
			Severity: "info",
			Message: fmt.Sprintf("%d better and %d new offer(s) found in %s",
				s.BetterOffers, s.NewOffers, states),
			RunID: e.RunID,
			Details: map[string]any{
				"better_offers": s.BetterOffers,
				"new_offers":    s.NewOffers,
				"comparisons":   s.Comparisons,
			},
			Timestamp: e.Timestamp,
		})
	}
	if a.cfg.MinMissingCasinos > 0 && s.MissingCasinos >= a.cfg.MinMissingCasinos {
		alerts = append(alerts, Alert{
			Type:      AlertMissingCasinos,
			Severity:  "medium",
			Message:   fmt.Sprintf("%d casino(s) missing from the offer database in %s", s.MissingCasinos, states),
			RunID:     e.RunID,
			Details:   map[string]any{"missing_casinos": s.MissingCasinos},
			Timestamp: e.Timestamp,
		})
	}
	return alerts
}

// Notify implements research.Notifier. Alerts are delivered in the
// background; Wait blocks until pending deliveries finish.
func (a *Alerter) Notify(e research.Event) {
	if a.cfg.WebhookURL == "" {
		return
	}
	alerts := a.Evaluate(e)
	if len(alerts) == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.client.Timeout)
		defer cancel()
		a.SendAlerts(ctx, alerts)
	}()
}

// Wait blocks until every alert queued by Notify has been attempted.
func (a *Alerter) Wait() { a.wg.Wait() }

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
				zap.String("run_id", alert.RunID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

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

func joinStates(e research.Event) string {
	if len(e.States) == 0 {
		return "all states"
	}
	parts := make([]string, len(e.States))
	for i, s := range e.States {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
