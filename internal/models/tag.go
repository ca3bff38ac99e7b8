package models

import "time"

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint   `gorm:"uniqueIndex:idx_tags_workspace_name;not null" json:"workspace_id"`
	Name        string `gorm:"uniqueIndex:idx_tags_workspace_name;size:100;not null" json:"name"`
}
