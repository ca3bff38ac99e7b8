package policy

import (
	"context"
	"errors"

	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/internal/models"
	"gorm.io/gorm"
)

// MembershipResolver resolves a subject to the profile of its role in the
// subject's workspace.
type MembershipResolver struct {
	DB *gorm.DB
}

func NewMembershipResolver(db *gorm.DB) *MembershipResolver {
	return &MembershipResolver{DB: db}
}

// Resolve returns nil when the user is not a member of the workspace.
func (r *MembershipResolver) Resolve(ctx context.Context, s Subject) (gate.Profile, error) {
	var m models.Membership
	err := r.DB.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", s.WorkspaceID, s.UserID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ProfileFor(m.Role), nil
}
