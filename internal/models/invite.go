package models

import "time"

// InviteTTL is how long an invitation stays valid.
const InviteTTL = 7 * 24 * time.Hour

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
	InviteStatusExpired  InviteStatus = "expired"
)

// Invite is a pending offer for an email address to join a workspace.
// At most one pending invite exists per (workspace, email).
type Invite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint       `gorm:"uniqueIndex:idx_invites_pending_email,where:status = 'pending';index;not null" json:"workspace_id"`
	Workspace   *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	InviterID   uint       `gorm:"not null" json:"inviter_id"`
	Inviter     *User      `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`

	Email     string       `gorm:"uniqueIndex:idx_invites_pending_email,where:status = 'pending';size:255;not null" json:"email"`
	Role      Role         `gorm:"size:20;not null;default:'member'" json:"role"`
	Token     string       `gorm:"uniqueIndex;size:64;not null" json:"token"`
	Status    InviteStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
}

// Pending reports whether the invite still awaits an answer.
func (i *Invite) Pending() bool { return i.Status == InviteStatusPending }

// Expired reports whether the invite is past its expiry at now.
func (i *Invite) Expired(now time.Time) bool { return !now.Before(i.ExpiresAt) }
