// Package store persists the document registry: ingested documents, their
// account rosters, and per-page classifications. Page field sets live in the
// blob-backed page cache, not here.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/config"
	"github.com/sells-group/docintake/internal/model"
)

// ErrNotFound is returned when a requested row does not exist. Match with
// eris.Is.
var ErrNotFound = eris.New("store: not found")

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Status       model.DocumentStatus `json:"status,omitempty"`
	CreatedAfter time.Time            `json:"created_after,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the intake pipeline.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, sourceKey string, pageCount int) (*model.Document, error)
	UpdateDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errMsg string) error
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	GetDocumentBySourceKey(ctx context.Context, sourceKey string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Accounts and holders (the roster a document is resolved against)
	ReplaceAccounts(ctx context.Context, documentID string, accounts []model.Account) error
	GetAccounts(ctx context.Context, documentID string) ([]model.Account, error)

	// Page classifications
	SaveClassifications(ctx context.Context, documentID string, classifications []model.PageClassification) error
	GetClassifications(ctx context.Context, documentID string) ([]model.PageClassification, error)
	ClassificationKindCounts(ctx context.Context, since time.Time) (map[model.ClassificationKind]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver ("sqlite" or "postgres")
// and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var s Store
	var err error

	switch cfg.Driver {
	case "postgres":
		s, err = NewPostgres(ctx, cfg)
	case "sqlite", "":
		s, err = NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
