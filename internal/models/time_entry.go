package models

import (
	"fmt"
	"time"
)

// MinBillableSeconds is the shortest entry that can be invoiced. Shorter
// entries are treated as accidental timer starts.
const MinBillableSeconds = 36

// TimeEntry is a span of tracked time. A nil EndAt means the timer is
// still running; DurationSeconds is derived from StartAt and EndAt.
type TimeEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint     `gorm:"index:idx_time_entries_billing,priority:1;not null" json:"workspace_id"`
	UserID      uint     `gorm:"index;not null" json:"user_id"`
	ProjectID   *uint    `gorm:"index" json:"project_id"`
	Project     *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL" json:"project,omitempty"`
	Tags        []Tag    `gorm:"many2many:time_entry_tags;constraint:OnDelete:CASCADE" json:"tags"`

	Description     string     `gorm:"type:text" json:"description"`
	Billable        bool       `gorm:"index:idx_time_entries_billing,priority:2;not null;default:false" json:"billable"`
	StartAt         time.Time  `gorm:"index:idx_time_entries_billing,priority:3;not null" json:"start_at"`
	EndAt           *time.Time `json:"end_at"`
	DurationSeconds int64      `gorm:"not null;default:0" json:"duration_seconds"`
}

// GetUserID implements policy.Ownable.
func (e *TimeEntry) GetUserID() uint { return e.UserID }

// Running reports whether the timer has not been stopped.
func (e *TimeEntry) Running() bool { return e.EndAt == nil }

// Stop completes a running entry at now. It returns false and changes
// nothing when the entry is already completed.
func (e *TimeEntry) Stop(now time.Time) bool {
	if !e.Running() {
		return false
	}
	end := now.UTC()
	e.EndAt = &end
	e.RecomputeDuration()
	return true
}

// RecomputeDuration derives DurationSeconds from StartAt and EndAt,
// truncated to whole seconds. Running entries have zero duration.
func (e *TimeEntry) RecomputeDuration() {
	if e.EndAt == nil {
		e.DurationSeconds = 0
		return
	}
	e.DurationSeconds = int64(e.EndAt.Sub(e.StartAt) / time.Second)
}

// Hours returns the duration as fractional hours.
func (e *TimeEntry) Hours() float64 {
	return float64(e.DurationSeconds) / 3600
}

// FormattedDuration renders "h:mm:ss", or "m:ss" under an hour. Running
// entries render as "".
func (e *TimeEntry) FormattedDuration() string {
	if e.Running() {
		return ""
	}
	d := e.DurationSeconds
	h, m, s := d/3600, (d%3600)/60, d%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
