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

	"github.com/sells-group/docintake/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDocumentFailureRate AlertType = "document_failure_rate"
	AlertUnassociatedRate    AlertType = "unassociated_page_rate"
)

// minFinishedDocuments keeps a single early failure from paging anyone.
const minFinishedDocuments = 5

// minClassifiedPages is the same guard for the unassociated-rate alert.
const minClassifiedPages = 20

// Alert is a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds and
// sends alerts via webhook when they are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.DocumentsCompleted + snap.DocumentsFailed
	if a.cfg.FailureRateThreshold > 0 && finished >= minFinishedDocuments && snap.FailureRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDocumentFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Document failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailureRate*100, a.cfg.FailureRateThreshold*100,
				snap.DocumentsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailureRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.DocumentsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.UnassociatedRateThreshold > 0 && snap.PagesTotal >= minClassifiedPages && snap.UnassociatedRate > a.cfg.UnassociatedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertUnassociatedRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Unassociated page rate %.1f%% exceeds threshold %.1f%% (%d pages in last %dh); roster may be stale or scan quality degraded",
				snap.UnassociatedRate*100, a.cfg.UnassociatedRateThreshold*100,
				snap.PagesTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"unassociated_rate": snap.UnassociatedRate,
				"threshold":         a.cfg.UnassociatedRateThreshold,
				"pages_total":       snap.PagesTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL. Returns the
// number of alerts successfully sent.
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
