// Package ingest runs a document end to end: intake, OCR, identity
// resolution, field extraction, and cache/store persistence.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/docintake/internal/dedup"
	"github.com/sells-group/docintake/internal/extract"
	"github.com/sells-group/docintake/internal/fetcher"
	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/ocr"
	"github.com/sells-group/docintake/internal/pagecache"
	"github.com/sells-group/docintake/internal/resolve"
	"github.com/sells-group/docintake/internal/review"
	"github.com/sells-group/docintake/internal/roster"
	"github.com/sells-group/docintake/internal/store"
)

const defaultMaxConcurrentPages = 10

// Fetcher stages a document reference into a local file.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*fetcher.Document, error)
}

// Pipeline wires the intake stages together.
type Pipeline struct {
	Fetcher   Fetcher
	OCR       ocr.PageExtractor
	Roster    roster.Provider
	Extractor extract.FieldExtractor
	Cache     *pagecache.Cache
	Store     store.Store
	Dedup     *dedup.Store
	Review    review.Queue

	// MaxConcurrentPages bounds the extraction pool. Zero means 10.
	MaxConcurrentPages int
}

// Result summarizes one pipeline run.
type Result struct {
	DocumentID   string
	Skipped      bool
	PageCount    int
	Accounts     int
	Unassociated int
}

// Run processes one document reference. A reference already begun by a
// previous run is skipped; everything after the dedup gate marks the
// reference completed or failed so restarts never double-process.
func (p *Pipeline) Run(ctx context.Context, ref string) (*Result, error) {
	key, err := canonicalKey(ref)
	if err != nil {
		return nil, err
	}

	ok, err := p.Dedup.TryBegin(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		zap.L().Info("document already processed, skipping", zap.String("source_key", key))
		return &Result{Skipped: true}, nil
	}

	res, err := p.process(ctx, key, ref)
	if err != nil {
		if markErr := p.Dedup.MarkFailed(key); markErr != nil {
			zap.L().Error("failed to record failure", zap.String("source_key", key), zap.Error(markErr))
		}
		return nil, err
	}

	if err := p.Dedup.MarkCompleted(key); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, key, ref string) (*Result, error) {
	staged, err := p.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer staged.Cleanup()

	pages, err := p.OCR.ExtractPages(ctx, staged.LocalPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: ocr %s", key)
	}

	doc, err := p.registerDocument(ctx, key, len(pages))
	if err != nil {
		return nil, err
	}

	res, err := p.resolveAndExtract(ctx, doc, pages)
	if err != nil {
		if statusErr := p.Store.UpdateDocumentStatus(ctx, doc.ID, model.DocumentStatusFailed, err.Error()); statusErr != nil {
			zap.L().Error("failed to record document failure", zap.String("document_id", doc.ID), zap.Error(statusErr))
		}
		return nil, err
	}

	if err := p.Store.UpdateDocumentStatus(ctx, doc.ID, model.DocumentStatusCompleted, ""); err != nil {
		return nil, err
	}

	zap.L().Info("document processed",
		zap.String("document_id", doc.ID),
		zap.String("source_key", key),
		zap.Int("pages", res.PageCount),
		zap.Int("accounts", res.Accounts),
		zap.Int("unassociated_pages", res.Unassociated))
	return res, nil
}

// registerDocument creates the registry row, reusing an existing row when a
// reset reference is re-run.
func (p *Pipeline) registerDocument(ctx context.Context, key string, pageCount int) (*model.Document, error) {
	existing, err := p.Store.GetDocumentBySourceKey(ctx, key)
	if err == nil {
		if statusErr := p.Store.UpdateDocumentStatus(ctx, existing.ID, model.DocumentStatusProcessing, ""); statusErr != nil {
			return nil, statusErr
		}
		return existing, nil
	}
	if !eris.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return p.Store.CreateDocument(ctx, key, pageCount)
}

// extractUnit is one page extraction under one view: an account view (the
// page belongs to that account's packet) or the document view (unassociated).
type extractUnit struct {
	page          model.PageText
	accountID     string
	accountNumber string
	cacheKey      string
}

func (p *Pipeline) resolveAndExtract(ctx context.Context, doc *model.Document, pages []model.PageText) (*Result, error) {
	accounts, err := p.Roster.AccountsForDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	classifications, err := resolve.ClassifyPages(ctx, pages, accounts)
	if err != nil {
		return nil, err
	}

	units, unassociated := p.planExtraction(doc.ID, pages, classifications, accounts)
	if err := p.extractAll(ctx, doc.ID, units); err != nil {
		return nil, err
	}

	if err := p.Store.SaveClassifications(ctx, doc.ID, classifications); err != nil {
		return nil, err
	}

	for _, item := range unassociated {
		item.DocumentID = doc.ID
		item.SourceKey = doc.SourceKey
		if err := p.Review.PushUnassociated(ctx, item); err != nil {
			// Review is best-effort; the page is still cached under its
			// document-scoped key.
			zap.L().Warn("review push failed",
				zap.String("document_id", doc.ID),
				zap.Int("page_index", item.PageIndex),
				zap.Error(err))
		}
	}

	return &Result{
		DocumentID:   doc.ID,
		PageCount:    len(pages),
		Accounts:     len(accounts),
		Unassociated: len(unassociated),
	}, nil
}

// planExtraction maps classifications to extraction units. A shared page
// yields one unit per owning account; an unassociated page yields a single
// document-scoped unit plus a review item.
func (p *Pipeline) planExtraction(documentID string, pages []model.PageText, classifications []model.PageClassification, accounts []model.Account) ([]extractUnit, []review.Item) {
	accountPos := make(map[string]int, len(accounts))
	accountNumber := make(map[string]string, len(accounts))
	for i, a := range accounts {
		accountPos[a.ID] = i
		accountNumber[a.ID] = a.Number
	}

	var units []extractUnit
	var unassociated []review.Item

	for _, cls := range classifications {
		page := pages[cls.PageIndex]

		if cls.Kind == model.KindUnassociated {
			units = append(units, extractUnit{
				page:     page,
				cacheKey: pagecache.DocumentPageKey(documentID, cls.PageIndex),
			})
			unassociated = append(unassociated, review.Item{
				PageIndex: cls.PageIndex,
				Reason:    "no account number or roster holder found on page",
			})
			continue
		}

		for _, accountID := range cls.AccountIDs {
			units = append(units, extractUnit{
				page:          page,
				accountID:     accountID,
				accountNumber: accountNumber[accountID],
				cacheKey:      pagecache.AccountPageKey(documentID, accountPos[accountID], cls.PageIndex+1),
			})
		}
	}

	return units, unassociated
}

// extractAll runs the extraction pool. A unit that fails is logged and
// skipped: bad pages degrade the document, they do not abort it.
func (p *Pipeline) extractAll(ctx context.Context, documentID string, units []extractUnit) error {
	if len(units) == 0 {
		return nil
	}

	limit := p.MaxConcurrentPages
	if limit <= 0 {
		limit = defaultMaxConcurrentPages
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, len(units)))
	for _, unit := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.extractOne(ctx, documentID, unit); err != nil {
				zap.L().Warn("page extraction failed, skipping",
					zap.String("document_id", documentID),
					zap.Int("page_index", unit.page.Index),
					zap.String("account_id", unit.accountID),
					zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) extractOne(ctx context.Context, documentID string, unit extractUnit) error {
	req := extract.PageRequest{
		DocumentID:    documentID,
		PageIndex:     unit.page.Index,
		Text:          unit.page.Text,
		AccountNumber: unit.accountNumber,
	}

	ext, err := p.Extractor.ExtractPage(ctx, req)
	if err != nil {
		return err
	}

	set := extract.BuildFieldSet(req, ext, unit.accountID)
	return p.Cache.Put(ctx, unit.cacheKey, pagecache.FromFieldSet(set))
}

// canonicalKey normalizes a document reference into the dedup key: FTP URLs
// pass through, local paths become absolute.
func canonicalKey(ref string) (string, error) {
	if strings.HasPrefix(ref, "ftp://") {
		return ref, nil
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: resolve %s", ref)
	}
	return abs, nil
}
