package ocr

import (
	"context"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/model"
)

// LocalExtractor reads the text layer of a PDF directly, without any OCR
// service. Good for born-digital PDFs; scanned images yield empty pages and
// should go through the mistral provider instead.
type LocalExtractor struct{}

// NewLocalExtractor creates a LocalExtractor.
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

// ExtractPages returns the plain text of every page. A page whose text layer
// cannot be read becomes an empty page rather than failing the document; it
// will classify as unassociated and surface in manual review.
func (e *LocalExtractor) ExtractPages(ctx context.Context, pdfPath string) ([]model.PageText, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: open PDF %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	numPages := r.NumPage()
	pages := make([]model.PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr: extract pages")
		}

		text := ""
		page := r.Page(i)
		if !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				zap.L().Warn("ocr: unreadable page text layer",
					zap.String("pdf", pdfPath),
					zap.Int("page", i),
					zap.Error(err),
				)
				text = ""
			}
		}
		pages = append(pages, model.PageText{Index: i - 1, Text: text})
	}

	return pages, nil
}
