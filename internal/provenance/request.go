package provenance

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/model"
)

// Action is the human action that produced an update request.
type Action string

const (
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// UpdateRequest is the wire form of a human edit against one cached page.
// PageData values may be JSON null; deletion is expressed exclusively
// through DeletedFields.
type UpdateRequest struct {
	PageData      map[string]*string `json:"page_data"`
	ActionType    Action             `json:"action_type"`
	DeletedFields []string           `json:"deleted_fields,omitempty"`
}

// Validate rejects requests that could not change anything.
func (r UpdateRequest) Validate() error {
	if !r.ActionType.Valid() {
		return eris.Errorf("provenance: unknown action_type %q", string(r.ActionType))
	}
	if len(r.PageData) == 0 && len(r.DeletedFields) == 0 {
		return eris.New("provenance: update names no fields")
	}
	return nil
}

// Values drops JSON nulls out of page_data. A null neither adds nor
// corrects a field, so nulled names fall through to the copied-through or
// deleted paths of the merge.
func (r UpdateRequest) Values() map[string]string {
	out := make(map[string]string, len(r.PageData))
	for name, v := range r.PageData {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}

// Apply translates the request and merges it into existing.
func Apply(existing model.PageFieldSet, req UpdateRequest, editedAt time.Time) model.PageFieldSet {
	return MergeUpdate(existing, req.Values(), req.DeletedFields, editedAt)
}
