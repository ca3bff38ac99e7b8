// Package policy wires the gate package to workspace roles: it resolves a
// user's membership to a role profile, registers resource policies and
// exposes HTTP middleware.
package policy

import "github.com/diewo77/go-timesheets/internal/tenant"

// Subject is the gate subject: a user acting inside one workspace. The
// zero Subject is unauthenticated.
type Subject struct {
	UserID      uint
	WorkspaceID uint
}

// SubjectFor returns the subject of a resolved scope.
func SubjectFor(s tenant.Scope) Subject {
	return Subject{UserID: s.UserID, WorkspaceID: s.WorkspaceID}
}
