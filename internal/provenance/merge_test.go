package provenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/model"
)

var editTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func cachedSet() model.PageFieldSet {
	return model.PageFieldSet{
		AccountID:     "acct-1",
		AccountNumber: "4410012345",
		PageIndex:     2,
		Fields: map[string]model.Field{
			"name": {Value: "John Smth", Confidence: 82, Source: model.SourceAIExtracted},
			"date": {Value: "2023-01-15", Confidence: 95, Source: model.SourceAIExtracted},
		},
		OverallConfidence: 88.5,
	}
}

func TestMergeUpdate_CorrectionStampsProvenance(t *testing.T) {
	got := MergeUpdate(cachedSet(), map[string]string{"name": "John Smith"}, nil, editTime)

	name := got.Fields["name"]
	assert.Equal(t, "John Smith", name.Value)
	assert.Equal(t, 100, name.Confidence)
	assert.Equal(t, model.SourceHumanCorrected, name.Source)
	require.NotNil(t, name.EditedAt)
	assert.Equal(t, editTime, *name.EditedAt)

	// The untouched field is identical, confidence and source included.
	assert.Equal(t, cachedSet().Fields["date"], got.Fields["date"])

	// Aggregate confidence is copied verbatim, never recomputed.
	assert.Equal(t, 88.5, got.OverallConfidence)
}

func TestMergeUpdate_AddNewField(t *testing.T) {
	got := MergeUpdate(cachedSet(), map[string]string{"signer_2_name": "Mary Campbell"}, nil, editTime)

	added := got.Fields["signer_2_name"]
	assert.Equal(t, "Mary Campbell", added.Value)
	assert.Equal(t, 100, added.Confidence)
	assert.Equal(t, model.SourceHumanAdded, added.Source)

	assert.Len(t, got.Fields, 3)
	assert.Equal(t, 88.5, got.OverallConfidence)
}

func TestMergeUpdate_DeleteRemovesEntirely(t *testing.T) {
	got := MergeUpdate(cachedSet(), nil, []string{"date"}, editTime)

	_, present := got.Fields["date"]
	assert.False(t, present)
	assert.Len(t, got.Fields, 1)
	assert.Equal(t, 88.5, got.OverallConfidence)
}

func TestMergeUpdate_DeleteWinsOverValue(t *testing.T) {
	got := MergeUpdate(cachedSet(),
		map[string]string{"date": "2024-01-01"},
		[]string{"date"},
		editTime)

	_, present := got.Fields["date"]
	assert.False(t, present)
}

func TestMergeUpdate_DeleteOfAbsentFieldIsNoop(t *testing.T) {
	got := MergeUpdate(cachedSet(), nil, []string{"never_existed"}, editTime)
	assert.Equal(t, cachedSet(), got)
}

func TestMergeUpdate_IdenticalValueCopiedThrough(t *testing.T) {
	got := MergeUpdate(cachedSet(), map[string]string{"name": "John Smth"}, nil, editTime)

	// Same value: no confidence bump, no source change, no stamp.
	assert.Equal(t, cachedSet().Fields["name"], got.Fields["name"])
}

func TestMergeUpdate_Idempotent(t *testing.T) {
	update := map[string]string{"name": "John Smith"}

	once := MergeUpdate(cachedSet(), update, nil, editTime)
	twice := MergeUpdate(once, update, nil, editTime)
	assert.Equal(t, once, twice)

	// Re-submitting later must not drift anything either: the value now
	// matches, so the field is copied through with its original stamp.
	later := MergeUpdate(once, update, nil, editTime.Add(48*time.Hour))
	assert.Equal(t, once, later)
}

func TestMergeUpdate_FieldIsolation(t *testing.T) {
	existing := model.PageFieldSet{
		Fields: map[string]model.Field{
			"a": {Value: "1", Confidence: 70, Source: model.SourceAIExtracted},
			"b": {Value: "2", Confidence: 80, Source: model.SourceAIExtracted},
			"c": {Value: "3", Confidence: 90, Source: model.SourceAIExtracted},
		},
		OverallConfidence: 80,
	}

	got := MergeUpdate(existing, map[string]string{"b": "2-fixed"}, nil, editTime)

	assert.Equal(t, existing.Fields["a"], got.Fields["a"])
	assert.Equal(t, existing.Fields["c"], got.Fields["c"])
	assert.Equal(t, "2-fixed", got.Fields["b"].Value)
}

func TestMergeUpdate_OverallConfidenceSurvivesFullRewrite(t *testing.T) {
	got := MergeUpdate(cachedSet(),
		map[string]string{"name": "A", "date": "B", "extra": "C"},
		nil,
		editTime)
	assert.Equal(t, 88.5, got.OverallConfidence)

	got = MergeUpdate(cachedSet(), nil, []string{"name", "date"}, editTime)
	assert.Empty(t, got.Fields)
	assert.Equal(t, 88.5, got.OverallConfidence)
}

func TestMergeUpdate_PureInputsUntouched(t *testing.T) {
	existing := cachedSet()
	MergeUpdate(existing, map[string]string{"name": "Changed"}, []string{"date"}, editTime)

	assert.Equal(t, cachedSet(), existing)
}

func TestMergeUpdate_EmptyExisting(t *testing.T) {
	got := MergeUpdate(model.PageFieldSet{}, map[string]string{"name": "New"}, nil, editTime)

	require.Len(t, got.Fields, 1)
	assert.Equal(t, model.SourceHumanAdded, got.Fields["name"].Source)
	assert.Zero(t, got.OverallConfidence)
}
