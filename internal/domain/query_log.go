package domain

import "time"

// RAGQueryLog is the append-only analytics record of one grounded
// generation call.
type RAGQueryLog struct {
	ID              string
	UserID          string
	KnowledgeBaseID string
	Query           string
	Response        string
	Sources         []SourceRef
	DurationMs      int64
	CreatedAt       time.Time
}
