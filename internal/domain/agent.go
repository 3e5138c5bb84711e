package domain

import (
	"fmt"
	"time"
)

// Agent is a configured voice assistant. Memories are scoped to an agent
// and the end user it is talking to.
type Agent struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAgent creates a new Agent instance
func NewAgent(id, userID, name, description string, createdAt time.Time) *Agent {
	return &Agent{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// OwnedBy reports whether the agent belongs to userID.
func (a *Agent) OwnedBy(userID string) bool {
	return a != nil && userID != "" && a.UserID == userID
}

// ValidateAgent validates an Agent instance
func ValidateAgent(a *Agent) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("agent ID is required")
	}

	if a.UserID == "" {
		return fmt.Errorf("agent UserID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("agent Name is required")
	}

	return nil
}
