package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/config"
	"github.com/sells-group/docintake/internal/dedup"
	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/store"
)

func seedStore(t *testing.T) store.Store {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCollector_Collect(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	ok, err := s.CreateDocument(ctx, "ok.pdf", 3)
	require.NoError(t, err)
	require.NoError(t, s.UpdateDocumentStatus(ctx, ok.ID, model.DocumentStatusCompleted, ""))

	bad, err := s.CreateDocument(ctx, "bad.pdf", 1)
	require.NoError(t, err)
	require.NoError(t, s.UpdateDocumentStatus(ctx, bad.ID, model.DocumentStatusFailed, "ocr timeout"))

	_, err = s.CreateDocument(ctx, "running.pdf", 2)
	require.NoError(t, err)

	require.NoError(t, s.SaveClassifications(ctx, ok.ID, []model.PageClassification{
		{PageIndex: 0, Kind: model.KindDirect, AccountIDs: []string{"a"}},
		{PageIndex: 1, Kind: model.KindHolderInferred, AccountIDs: []string{"a"}},
		{PageIndex: 2, Kind: model.KindUnassociated},
	}))

	ded, err := dedup.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	_, err = ded.TryBegin("ok.pdf")
	require.NoError(t, err)
	require.NoError(t, ded.MarkCompleted("ok.pdf"))
	_, err = ded.TryBegin("stuck.pdf")
	require.NoError(t, err)

	snap, err := NewCollector(s, ded).Collect(ctx, 24)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.DocumentsTotal)
	assert.Equal(t, 1, snap.DocumentsCompleted)
	assert.Equal(t, 1, snap.DocumentsFailed)
	assert.Equal(t, 1, snap.DocumentsProcessing)
	assert.InDelta(t, 0.5, snap.FailureRate, 1e-9)

	assert.Equal(t, 3, snap.PagesTotal)
	assert.Equal(t, 1, snap.PagesByKind[model.KindUnassociated])
	assert.InDelta(t, 1.0/3.0, snap.UnassociatedRate, 1e-9)

	assert.Equal(t, 2, snap.DedupEntries)
	assert.Equal(t, 1, snap.DedupProcessing)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollector_EmptyStore(t *testing.T) {
	snap, err := NewCollector(seedStore(t), nil).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.DocumentsTotal)
	assert.Zero(t, snap.FailureRate)
	assert.Zero(t, snap.UnassociatedRate)
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:      0.10,
		UnassociatedRateThreshold: 0.25,
	})

	snap := &MetricsSnapshot{
		DocumentsTotal:     100,
		DocumentsCompleted: 95,
		DocumentsFailed:    5,
		FailureRate:        0.05,
		PagesTotal:         400,
		UnassociatedRate:   0.10,
		LookbackHours:      24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		DocumentsTotal:     20,
		DocumentsCompleted: 12,
		DocumentsFailed:    8,
		FailureRate:        0.4,
		LookbackHours:      24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDocumentFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_TooFewDocumentsSuppressed(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		DocumentsTotal:  2,
		DocumentsFailed: 2,
		FailureRate:     1.0,
		LookbackHours:   24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_UnassociatedRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{UnassociatedRateThreshold: 0.25})

	snap := &MetricsSnapshot{
		PagesTotal:       100,
		UnassociatedRate: 0.40,
		LookbackHours:    24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertUnassociatedRate, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertDocumentFailureRate, Severity: "high", Message: "x", Timestamp: time.Now()},
		{Type: AlertUnassociatedRate, Severity: "medium", Message: "y", Timestamp: time.Now()},
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDocumentFailureRate, Message: "x"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_NoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Message: "x"}}))
}
