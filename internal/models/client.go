package models

import "time"

// Client is a billed customer of a workspace.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID    uint   `gorm:"uniqueIndex:idx_clients_workspace_name;not null" json:"workspace_id"`
	Name           string `gorm:"uniqueIndex:idx_clients_workspace_name;size:255;not null" json:"name"`
	BillingAddress string `gorm:"type:text" json:"billing_address,omitempty"`
}
