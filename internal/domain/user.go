package domain

import (
	"fmt"
	"time"
)

// User is the tenant boundary. Agents, knowledge bases and API keys all
// belong to exactly one user.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// NewUser creates a new User instance
func NewUser(id, email, name string, createdAt time.Time) *User {
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}

	if u.Email == "" {
		return fmt.Errorf("user Email is required")
	}

	return nil
}
