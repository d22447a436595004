package provenance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/model"
)

func TestUpdateRequest_DecodeWithNull(t *testing.T) {
	raw := `{"page_data": {"name": "John Smith", "fax": null}, "action_type": "edit", "deleted_fields": ["fax"]}`

	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, ActionEdit, req.ActionType)
	require.Contains(t, req.PageData, "fax")
	assert.Nil(t, req.PageData["fax"])
	assert.Equal(t, []string{"fax"}, req.DeletedFields)

	values := req.Values()
	assert.Equal(t, map[string]string{"name": "John Smith"}, values)
}

func TestUpdateRequest_Validate(t *testing.T) {
	v := "x"

	assert.NoError(t, UpdateRequest{
		PageData:   map[string]*string{"f": &v},
		ActionType: ActionAdd,
	}.Validate())

	assert.NoError(t, UpdateRequest{
		ActionType:    ActionDelete,
		DeletedFields: []string{"f"},
	}.Validate())

	err := UpdateRequest{ActionType: Action("rename")}.Validate()
	assert.Error(t, err)

	err = UpdateRequest{ActionType: ActionEdit}.Validate()
	assert.Error(t, err)
}

func TestApply_NullNeverAddsOrCorrects(t *testing.T) {
	existing := model.PageFieldSet{
		Fields: map[string]model.Field{
			"name": {Value: "John", Confidence: 90, Source: model.SourceAIExtracted},
		},
		OverallConfidence: 90,
	}

	req := UpdateRequest{
		PageData:   map[string]*string{"name": nil, "ghost": nil},
		ActionType: ActionEdit,
	}

	got := Apply(existing, req, editTime)

	// Nulls fall through: existing field untouched, absent field not created.
	assert.Equal(t, existing.Fields["name"], got.Fields["name"])
	_, present := got.Fields["ghost"]
	assert.False(t, present)
}

func TestApply_DeleteAction(t *testing.T) {
	existing := model.PageFieldSet{
		Fields: map[string]model.Field{
			"name": {Value: "John", Confidence: 90, Source: model.SourceAIExtracted},
			"date": {Value: "2023-01-15", Confidence: 95, Source: model.SourceAIExtracted},
		},
		OverallConfidence: 92.5,
	}

	req := UpdateRequest{
		PageData:      map[string]*string{"name": nil},
		ActionType:    ActionDelete,
		DeletedFields: []string{"name"},
	}

	got := Apply(existing, req, editTime)

	_, present := got.Fields["name"]
	assert.False(t, present)
	assert.Equal(t, existing.Fields["date"], got.Fields["date"])
	assert.Equal(t, 92.5, got.OverallConfidence)
}
