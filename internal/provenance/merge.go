// Package provenance implements the field edit-merge protocol: how human
// corrections fold into a previously cached extraction without disturbing
// untouched fields or the page's frozen aggregate confidence.
package provenance

import (
	"time"

	"github.com/sells-group/docintake/internal/model"
)

// humanConfidence is assigned to any field a human added or corrected.
const humanConfidence = 100

// MergeUpdate folds a human edit into an existing page field set and returns
// the merged set. The function is pure; persisting the result and
// serializing concurrent edits to the same page are the caller's problem.
//
// Per field named in incoming or deleted:
//
//	deleted                      -> removed from the result entirely
//	new name with a value        -> confidence 100, source human_added
//	existing name, value differs -> confidence 100, source human_corrected,
//	                                editedAt stamped
//	existing name, same value    -> copied through unchanged, so repeating
//	                                an edit cannot drift confidence
//
// Fields absent from the request are copied through untouched, and
// OverallConfidence always carries over verbatim: it reflects the original
// extraction, never the edit history.
func MergeUpdate(existing model.PageFieldSet, incoming map[string]string, deleted []string, editedAt time.Time) model.PageFieldSet {
	out := model.PageFieldSet{
		AccountID:         existing.AccountID,
		AccountNumber:     existing.AccountNumber,
		PageIndex:         existing.PageIndex,
		Fields:            make(map[string]model.Field, len(existing.Fields)+len(incoming)),
		OverallConfidence: existing.OverallConfidence,
	}

	deletedSet := make(map[string]struct{}, len(deleted))
	for _, name := range deleted {
		deletedSet[name] = struct{}{}
	}

	for name, f := range existing.Fields {
		if _, gone := deletedSet[name]; gone {
			continue
		}
		if v, ok := incoming[name]; ok && v != f.Value {
			ts := editedAt
			out.Fields[name] = model.Field{
				Value:      v,
				Confidence: humanConfidence,
				Source:     model.SourceHumanCorrected,
				EditedAt:   &ts,
			}
			continue
		}
		out.Fields[name] = f
	}

	for name, v := range incoming {
		if _, gone := deletedSet[name]; gone {
			continue
		}
		if _, exists := existing.Fields[name]; exists {
			continue
		}
		out.Fields[name] = model.Field{
			Value:      v,
			Confidence: humanConfidence,
			Source:     model.SourceHumanAdded,
		}
	}

	return out
}
