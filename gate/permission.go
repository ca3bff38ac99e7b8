package gate

import "strings"

// Action is the verb half of a permission.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	// ActionManage covers acting on other users' records of a resource.
	ActionManage Action = "manage"
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "invoice:create", "time_entry:view")
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission grants a requested permission.
// "*:*" matches everything, "invoice:*" every invoice action and "*:view"
// the view action on every resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	resOK := res == WildcardAll || res == reqRes
	actOK := string(act) == WildcardAll || act == reqAct
	return resOK && actOK
}
