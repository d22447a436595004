package model

import "time"

// DocumentStatus tracks a document through the intake pipeline.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is one ingested source file.
type Document struct {
	ID        string         `json:"id"`
	SourceKey string         `json:"source_key"`
	PageCount int            `json:"page_count"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
