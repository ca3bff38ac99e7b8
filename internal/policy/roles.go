package policy

import (
	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/internal/models"
)

// Resource types used in permissions.
const (
	ResourceWorkspace      = "workspace"
	ResourceMembership     = "membership"
	ResourceInvite         = "invite"
	ResourceClient         = "client"
	ResourceProject        = "project"
	ResourceTag            = "tag"
	ResourceTimeEntry      = "time_entry"
	ResourceInvoice        = "invoice"
	ResourceInvoiceSetting = "invoice_setting"
	ResourceReport         = "report"
)

// ActionSend emails an invoice.
const ActionSend gate.Action = "send"

func perm(resource string, action gate.Action) gate.Permission {
	return gate.NewPermission(resource, action)
}

func all(resource string) gate.Permission {
	return gate.Permission(resource + ":" + gate.WildcardAll)
}

// catalog resources every member may fully manage.
var memberCRUD = []string{ResourceClient, ResourceProject, ResourceTag, ResourceTimeEntry}

var (
	ownerProfile = gate.NewStaticProfile(string(models.RoleOwner), gate.PermissionSuperAdmin)

	adminProfile = gate.NewStaticProfile(string(models.RoleAdmin),
		perm(ResourceWorkspace, gate.ActionView),
		perm(ResourceWorkspace, gate.ActionUpdate),
		perm(ResourceMembership, gate.ActionList),
		perm(ResourceMembership, gate.ActionDelete),
		perm(ResourceMembership, gate.ActionManage),
		all(ResourceInvite),
		all(ResourceClient),
		all(ResourceProject),
		all(ResourceTag),
		all(ResourceTimeEntry),
		all(ResourceInvoice),
		all(ResourceInvoiceSetting),
		all(ResourceReport),
	)

	memberProfile = gate.NewStaticProfile(string(models.RoleMember), memberPermissions()...)
)

func memberPermissions() []gate.Permission {
	perms := []gate.Permission{
		perm(ResourceWorkspace, gate.ActionView),
		perm(ResourceMembership, gate.ActionList),
		// leaving a workspace; MembershipPolicy restricts it to self
		perm(ResourceMembership, gate.ActionDelete),
		perm(ResourceInvoice, gate.ActionList),
		perm(ResourceInvoice, gate.ActionView),
		perm(ResourceInvoiceSetting, gate.ActionView),
		perm(ResourceReport, gate.ActionView),
	}
	for _, r := range memberCRUD {
		perms = append(perms, all(r))
	}
	return perms
}

// ProfileFor returns the static profile of a workspace role, or nil for an
// unknown role.
func ProfileFor(role models.Role) gate.Profile {
	switch role {
	case models.RoleOwner:
		return ownerProfile
	case models.RoleAdmin:
		return adminProfile
	case models.RoleMember:
		return memberProfile
	}
	return nil
}
