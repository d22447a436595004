// Package extract turns page text into structured field sets via an LLM
// extractor, and parses the extractor's output into typed records.
package extract

import (
	"context"

	"github.com/sells-group/docintake/internal/model"
)

// PageRequest carries one page to the extractor, with the account context
// the identity-resolution pass established for it.
type PageRequest struct {
	DocumentID    string
	PageIndex     int
	Text          string
	AccountNumber string
	DocumentKind  string
}

// ExtractedField is one field as the extractor reported it.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// PageExtraction is the extractor's full answer for one page.
type PageExtraction struct {
	Fields    map[string]ExtractedField `json:"fields"`
	Reasoning string                    `json:"reasoning,omitempty"`
}

// FieldExtractor produces a structured field extraction for one page.
type FieldExtractor interface {
	ExtractPage(ctx context.Context, req PageRequest) (*PageExtraction, error)
}

// BuildFieldSet converts a PageExtraction into a page field set. Every field
// starts as AI-extracted, and the aggregate confidence is computed here,
// once, as the mean of the field confidences. Nothing downstream ever
// recomputes it; human edits carry it forward verbatim.
func BuildFieldSet(req PageRequest, ext *PageExtraction, accountID string) model.PageFieldSet {
	set := model.PageFieldSet{
		AccountID:     accountID,
		AccountNumber: req.AccountNumber,
		PageIndex:     req.PageIndex,
		Fields:        make(map[string]model.Field, len(ext.Fields)),
	}

	var total float64
	for name, f := range ext.Fields {
		conf := clampConfidence(f.Confidence)
		set.Fields[name] = model.Field{
			Value:      f.Value,
			Confidence: conf,
			Source:     model.SourceAIExtracted,
		}
		total += float64(conf)
	}
	if len(set.Fields) > 0 {
		set.OverallConfidence = total / float64(len(set.Fields))
	}

	return set
}

func clampConfidence(c float64) int {
	// Extractors occasionally report 0..1 instead of 0..100.
	if c > 0 && c <= 1 {
		c *= 100
	}
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return int(c)
}
