package domain

import (
	"fmt"
	"strings"
	"time"
)

// MemoryRecord is a free-text snippet remembered by an agent about one end
// user. Records are immutable once saved and are only removed in bulk.
type MemoryRecord struct {
	ID        string
	AgentID   string
	UserID    string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
	Embedding []float32
}

// MemoryResult is one ranked hit from a memory query.
type MemoryResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// MemoryFilter scopes a vector operation to one (agent, user) pair.
func MemoryFilter(agentID, userID string) VectorFilter {
	return VectorFilter{
		MetaKind:    KindMemory,
		MetaAgentID: agentID,
		MetaUserID:  userID,
	}
}

// MemoryMetadata merges caller metadata with the system fields. System
// fields are written last so they always win.
func MemoryMetadata(r *MemoryRecord) map[string]any {
	md := make(map[string]any, len(r.Metadata)+5)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[MetaKind] = KindMemory
	md[MetaAgentID] = r.AgentID
	md[MetaUserID] = r.UserID
	md[MetaContent] = r.Content
	md[MetaTimestamp] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	return md
}

// ValidateMemoryScope checks the (agent, user) pair every memory operation needs.
func ValidateMemoryScope(agentID, userID string) error {
	if agentID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "agent ID is required", ErrMissingRequiredField)
	}
	if userID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "user ID is required", ErrMissingRequiredField)
	}
	return nil
}

// ValidateMemoryRecord validates a MemoryRecord before it is embedded.
func ValidateMemoryRecord(r *MemoryRecord) error {
	if r == nil {
		return fmt.Errorf("memory record cannot be nil")
	}
	if err := ValidateMemoryScope(r.AgentID, r.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Content) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "memory content is required", ErrMissingRequiredField)
	}
	return nil
}
