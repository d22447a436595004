package model

import "time"

// FieldSource says where a field value came from.
type FieldSource string

const (
	SourceAIExtracted    FieldSource = "ai_extracted"
	SourceHumanAdded     FieldSource = "human_added"
	SourceHumanCorrected FieldSource = "human_corrected"
)

// Field is one extracted value with its provenance. Fields live in a
// PageFieldSet keyed by field name, so the name is not repeated here.
type Field struct {
	Value      string      `json:"value"`
	Confidence int         `json:"confidence"`
	Source     FieldSource `json:"source"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
}

// PageFieldSet is every field extracted from one page for one account view.
// OverallConfidence is computed once from the initial extraction and is
// never recomputed afterwards, whatever happens to individual fields.
type PageFieldSet struct {
	AccountID         string           `json:"account_id,omitempty"`
	AccountNumber     string           `json:"account_number,omitempty"`
	PageIndex         int              `json:"page_index"`
	Fields            map[string]Field `json:"fields"`
	OverallConfidence float64          `json:"overall_confidence"`
}

// Clone returns a deep copy of the set. Field values are value types except
// EditedAt, which is re-pointed at a copied timestamp.
func (s PageFieldSet) Clone() PageFieldSet {
	out := s
	out.Fields = make(map[string]Field, len(s.Fields))
	for name, f := range s.Fields {
		if f.EditedAt != nil {
			ts := *f.EditedAt
			f.EditedAt = &ts
		}
		out.Fields[name] = f
	}
	return out
}

// SignerGroup collects the fields describing one signer on a page, keyed by
// the 1-based signer index from the extractor's field naming convention
// (signer_1_name, signer_2_ssn, ...). Field names inside the group are bare
// ("name", "ssn").
type SignerGroup struct {
	Index  int              `json:"index"`
	Fields map[string]Field `json:"fields"`
}
