package domain

import (
	"fmt"
	"time"
)

// IngestionJobStatus represents the status of an ingestion job
type IngestionJobStatus string

const (
	IngestionJobStatusPending    IngestionJobStatus = "pending"
	IngestionJobStatusProcessing IngestionJobStatus = "processing"
	IngestionJobStatusCompleted  IngestionJobStatus = "completed"
	IngestionJobStatusFailed     IngestionJobStatus = "failed"
)

// IngestionJob represents an async extract/chunk/embed run for one document
type IngestionJob struct {
	ID          string
	DocumentID  string
	Status      IngestionJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIngestionJob creates a new IngestionJob instance
func NewIngestionJob(
	id, documentID string,
	status IngestionJobStatus,
	retries int32,
	errMsg string,
	createdAt time.Time,
	processedAt *time.Time,
) *IngestionJob {
	return &IngestionJob{
		ID:          id,
		DocumentID:  documentID,
		Status:      status,
		Retries:     retries,
		Error:       errMsg,
		CreatedAt:   createdAt,
		ProcessedAt: processedAt,
	}
}

// ValidateIngestionJob validates an IngestionJob instance
func ValidateIngestionJob(j *IngestionJob) error {
	if j == nil {
		return fmt.Errorf("ingestion job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingestion job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("ingestion job DocumentID is required")
	}

	if !isValidIngestionJobStatus(j.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidIngestionStatus, j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("ingestion job Retries cannot be negative")
	}

	return nil
}

func isValidIngestionJobStatus(s IngestionJobStatus) bool {
	switch s {
	case IngestionJobStatusPending, IngestionJobStatusProcessing,
		IngestionJobStatusCompleted, IngestionJobStatusFailed:
		return true
	}
	return false
}
