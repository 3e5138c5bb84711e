package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded file belonging to a knowledge base. The raw bytes
// live in blob storage under StorageKey.
type Document struct {
	ID              string
	KnowledgeBaseID string
	UserID          string
	Filename        string
	ContentType     string
	StorageKey      string
	SizeBytes       int64
	Status          DocumentStatus
	ChunkCount      int
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewDocument creates a pending Document.
func NewDocument(id, knowledgeBaseID, userID, filename, contentType string, sizeBytes int64, createdAt time.Time) *Document {
	return &Document{
		ID:              id,
		KnowledgeBaseID: knowledgeBaseID,
		UserID:          userID,
		Filename:        filename,
		ContentType:     contentType,
		StorageKey:      DocumentStorageKey(userID, knowledgeBaseID, id, filename),
		SizeBytes:       sizeBytes,
		Status:          DocumentStatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

// DocumentStorageKey builds the blob key for a document.
func DocumentStorageKey(userID, knowledgeBaseID, documentID, filename string) string {
	return fmt.Sprintf("users/%s/knowledge-bases/%s/documents/%s/%s",
		userID, knowledgeBaseID, documentID, filepath.Base(filename))
}

// Extension returns the lower-cased file extension without the dot.
func (d *Document) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Filename)), ".")
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.KnowledgeBaseID == "" {
		return fmt.Errorf("document KnowledgeBaseID is required")
	}

	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidDocumentStatus, d.Status)
	}

	if d.SizeBytes < 0 {
		return fmt.Errorf("document SizeBytes cannot be negative")
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
