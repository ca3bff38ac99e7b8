package models

import (
	"strings"
	"time"
)

// User is an account that can belong to several workspaces.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string `gorm:"size:255;not null" json:"name"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	TimeZone     string `gorm:"size:64;not null;default:'UTC'" json:"time_zone"`

	// LastUsedWorkspaceID is where clients land after login.
	LastUsedWorkspaceID *uint `json:"last_used_workspace_id,omitempty"`
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
