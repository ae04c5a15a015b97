package model

import "time"

// JobStatus represents the current state of a matching job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusExtracting JobStatus = "extracting"
	JobStatusEmbedding  JobStatus = "embedding"
	JobStatusMatching   JobStatus = "matching"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a single matching run over one inquiry workbook.
type Job struct {
	ID           string    `json:"id"`
	InquiryFile  string    `json:"inquiry_file"`
	Status       JobStatus `json:"status"`
	ItemCount    int       `json:"item_count"`
	MatchedCount int       `json:"matched_count"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
