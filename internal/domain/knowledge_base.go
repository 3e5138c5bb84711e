package domain

import (
	"fmt"
	"time"
)

// KnowledgeBase groups uploaded documents whose chunks are searched together.
type KnowledgeBase struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewKnowledgeBase creates a new KnowledgeBase instance
func NewKnowledgeBase(id, userID, name, description string, createdAt time.Time) *KnowledgeBase {
	return &KnowledgeBase{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// OwnedBy reports whether the knowledge base belongs to userID.
func (k *KnowledgeBase) OwnedBy(userID string) bool {
	return k != nil && userID != "" && k.UserID == userID
}

// ValidateKnowledgeBase validates a KnowledgeBase instance
func ValidateKnowledgeBase(k *KnowledgeBase) error {
	if k == nil {
		return fmt.Errorf("knowledge base cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge base ID is required")
	}

	if k.UserID == "" {
		return fmt.Errorf("knowledge base UserID is required")
	}

	if k.Name == "" {
		return fmt.Errorf("knowledge base Name is required")
	}

	return nil
}
