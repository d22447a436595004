package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFieldSet_CloneIsDeep(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	orig := PageFieldSet{
		AccountID: "acct-1",
		PageIndex: 3,
		Fields: map[string]Field{
			"name": {Value: "John Smith", Confidence: 95, Source: SourceAIExtracted},
			"date": {Value: "2024-01-02", Confidence: 100, Source: SourceHumanCorrected, EditedAt: &ts},
		},
		OverallConfidence: 97.5,
	}

	clone := orig.Clone()
	assert.Equal(t, orig, clone)

	// Mutating the clone must not reach back into the original.
	clone.Fields["name"] = Field{Value: "Jane", Confidence: 100, Source: SourceHumanAdded}
	*clone.Fields["date"].EditedAt = ts.Add(time.Hour)

	assert.Equal(t, "John Smith", orig.Fields["name"].Value)
	require.NotNil(t, orig.Fields["date"].EditedAt)
	assert.Equal(t, ts, *orig.Fields["date"].EditedAt)
}

func TestPageFieldSet_CloneEmptyFields(t *testing.T) {
	clone := PageFieldSet{PageIndex: 1}.Clone()
	assert.NotNil(t, clone.Fields)
	assert.Empty(t, clone.Fields)
}
