package policy

import (
	"context"

	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/internal/models"
)

// Ownable is implemented by resources that belong to a single user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows access only to the resource's own user. For
// list/create (nil resource) it defers to the profile permission.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, s Subject, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// no ownership information: deny
		return false
	}
	return ownable.GetUserID() == s.UserID
}

// MembershipPolicy guards member removal and role changes. The owner's
// membership is never touched. Removing someone else needs
// membership:manage.
type MembershipPolicy struct {
	resolver gate.ProfileResolver[Subject]
}

func NewMembershipPolicy(resolver gate.ProfileResolver[Subject]) *MembershipPolicy {
	return &MembershipPolicy{resolver: resolver}
}

func (p *MembershipPolicy) Can(ctx context.Context, s Subject, action gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	m, ok := resource.(*models.Membership)
	if !ok {
		return false
	}
	if m.WorkspaceID != s.WorkspaceID || m.Role == models.RoleOwner {
		return false
	}
	if action == gate.ActionDelete && m.UserID == s.UserID {
		return true
	}
	profile, err := p.resolver.Resolve(ctx, s)
	if err != nil || profile == nil {
		return false
	}
	if action == gate.ActionDelete {
		return profile.HasPermission(perm(ResourceMembership, gate.ActionManage))
	}
	return profile.HasPermission(perm(ResourceMembership, action))
}
