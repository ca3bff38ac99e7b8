package models

import "time"

// Role is a workspace-scoped role. Order: owner > admin > member.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// AtLeast reports whether r grants everything other grants.
func (r Role) AtLeast(other Role) bool { return r.rank() >= other.rank() }

// Membership links a user to a workspace with a role.
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint  `gorm:"uniqueIndex:idx_memberships_workspace_user;not null" json:"workspace_id"`
	UserID      uint  `gorm:"uniqueIndex:idx_memberships_workspace_user;index;not null" json:"user_id"`
	User        *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role        Role  `gorm:"size:20;not null;default:'member'" json:"role"`
}

// GetUserID implements policy.Ownable.
func (m *Membership) GetUserID() uint { return m.UserID }
