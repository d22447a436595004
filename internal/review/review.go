// Package review queues pages that could not be tied to any account for
// manual triage. The production queue is a Notion database the operations
// team works out of.
package review

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/docintake/internal/config"
)

// Item is one unassociated page surfaced for manual review.
type Item struct {
	DocumentID string
	SourceKey  string
	PageIndex  int
	Reason     string
}

// Queue receives unassociated pages.
type Queue interface {
	PushUnassociated(ctx context.Context, item Item) error
}

// New returns the Notion queue when a token and database are configured,
// otherwise a no-op queue.
func New(cfg config.ReviewConfig) Queue {
	if cfg.NotionToken == "" || cfg.NotionDB == "" {
		return NoopQueue{}
	}
	return NewNotionQueue(cfg.NotionToken, cfg.NotionDB)
}

// NoopQueue drops items. Used when no review database is configured; the
// pages still land in the cache under document-scoped keys.
type NoopQueue struct{}

func (NoopQueue) PushUnassociated(_ context.Context, item Item) error {
	zap.L().Debug("review queue unconfigured, dropping item",
		zap.String("document_id", item.DocumentID),
		zap.Int("page_index", item.PageIndex))
	return nil
}

// pageCreator is the slice of the Notion API the queue uses.
type pageCreator interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type notionPages struct {
	inner *notionapi.Client
}

func (c notionPages) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return c.inner.Page.Create(ctx, req)
}

// NotionQueue creates one row per unassociated page in a review database.
type NotionQueue struct {
	client  pageCreator
	dbID    string
	limiter *rate.Limiter
}

// NewNotionQueue builds a queue against a Notion database. Calls are
// throttled to 3 req/s (Notion's documented limit).
func NewNotionQueue(token, dbID string) *NotionQueue {
	return &NotionQueue{
		client:  notionPages{inner: notionapi.NewClient(notionapi.Token(token))},
		dbID:    dbID,
		limiter: rate.NewLimiter(3, 1),
	}
}

func (q *NotionQueue) PushUnassociated(ctx context.Context, item Item) error {
	if err := q.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "review: rate limit")
	}

	title := fmt.Sprintf("%s p.%d", item.SourceKey, item.PageIndex+1)
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(q.dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: title}}},
			},
			"Document ID": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: item.DocumentID}}},
			},
			"Page": notionapi.NumberProperty{
				Number: float64(item.PageIndex + 1),
			},
			"Reason": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: item.Reason}}},
			},
		},
	}

	if _, err := q.client.CreatePage(ctx, req); err != nil {
		return eris.Wrapf(err, "review: queue page %d of %s", item.PageIndex, item.DocumentID)
	}

	zap.L().Info("queued page for review",
		zap.String("document_id", item.DocumentID),
		zap.Int("page_index", item.PageIndex),
		zap.String("reason", item.Reason))
	return nil
}
