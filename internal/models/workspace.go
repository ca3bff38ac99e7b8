package models

import (
	"time"
	_ "time/tzdata"
)

// Workspace is the tenant boundary. Every client, project, tag, time entry
// and invoice belongs to exactly one workspace.
type Workspace struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"size:255;not null" json:"name"`
	OwnerID uint   `gorm:"index;not null" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"-"`

	// TimeZone is the IANA zone used to interpret calendar dates (invoice
	// periods, report ranges).
	TimeZone string `gorm:"size:64;not null;default:'UTC'" json:"time_zone"`
}

// Location returns the workspace time zone, falling back to UTC.
func (w *Workspace) Location() *time.Location {
	if w.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
