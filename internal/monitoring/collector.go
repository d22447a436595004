// Package monitoring watches pipeline health: document failure rates and the
// share of pages that could not be tied to any account.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/dedup"
	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/store"
)

// MetricsSnapshot holds a point-in-time view of intake health.
type MetricsSnapshot struct {
	// Document metrics (within lookback window).
	DocumentsTotal      int     `json:"documents_total"`
	DocumentsCompleted  int     `json:"documents_completed"`
	DocumentsFailed     int     `json:"documents_failed"`
	DocumentsProcessing int     `json:"documents_processing"`
	FailureRate         float64 `json:"failure_rate"`

	// Page classification metrics (within lookback window).
	PagesTotal       int                              `json:"pages_total"`
	PagesByKind      map[model.ClassificationKind]int `json:"pages_by_kind"`
	UnassociatedRate float64                          `json:"unassociated_rate"`

	// Dedup state file depth, all time.
	DedupEntries    int `json:"dedup_entries"`
	DedupProcessing int `json:"dedup_processing"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the registry and the dedup state file.
type Collector struct {
	store store.Store
	dedup *dedup.Store
}

func NewCollector(st store.Store, ded *dedup.Store) *Collector {
	return &Collector{store: st, dedup: ded}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	docs, err := c.store.ListDocuments(ctx, store.DocumentFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list documents")
	}

	snap.DocumentsTotal = len(docs)
	for _, d := range docs {
		switch d.Status {
		case model.DocumentStatusCompleted:
			snap.DocumentsCompleted++
		case model.DocumentStatusFailed:
			snap.DocumentsFailed++
		case model.DocumentStatusProcessing:
			snap.DocumentsProcessing++
		}
	}
	if finished := snap.DocumentsCompleted + snap.DocumentsFailed; finished > 0 {
		snap.FailureRate = float64(snap.DocumentsFailed) / float64(finished)
	}

	counts, err := c.store.ClassificationKindCounts(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: classification counts")
	}
	snap.PagesByKind = counts
	for _, n := range counts {
		snap.PagesTotal += n
	}
	if snap.PagesTotal > 0 {
		snap.UnassociatedRate = float64(counts[model.KindUnassociated]) / float64(snap.PagesTotal)
	}

	if c.dedup != nil {
		for _, rec := range c.dedup.Snapshot() {
			snap.DedupEntries++
			if rec.Status == dedup.StatusProcessing {
				snap.DedupProcessing++
			}
		}
	}

	return snap, nil
}
