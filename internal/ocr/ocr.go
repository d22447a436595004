// Package ocr extracts per-page text from scanned PDF documents.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/config"
	"github.com/sells-group/docintake/internal/model"
)

// PageExtractor yields the text of every page of a PDF, in page order.
// Page indexes in the result are zero-based.
type PageExtractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]model.PageText, error)
}

// NewExtractor creates a PageExtractor based on config.
func NewExtractor(cfg config.OCRConfig) (PageExtractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalExtractor(), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel, cfg.RequestsPerSec), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
