// Package tenant carries the resolved workspace context of a request.
//
// A Scope is built once at the HTTP boundary from the authenticated user and
// the workspace in the URL, then passed explicitly to every service call.
// Services filter every query by Scope.WorkspaceID.
package tenant

import (
	"context"
	"time"

	"github.com/diewo77/go-timesheets/internal/models"
)

// Scope identifies who is acting in which workspace.
type Scope struct {
	WorkspaceID uint
	UserID      uint
	Role        models.Role
	Location    *time.Location
}

// New builds a scope from a workspace and the caller's membership.
func New(ws *models.Workspace, m *models.Membership) Scope {
	return Scope{
		WorkspaceID: ws.ID,
		UserID:      m.UserID,
		Role:        m.Role,
		Location:    ws.Location(),
	}
}

// Loc returns the workspace time zone, defaulting to UTC.
func (s Scope) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// IsAdmin reports whether the caller is admin or owner.
func (s Scope) IsAdmin() bool { return s.Role.AtLeast(models.RoleAdmin) }

// IsOwner reports whether the caller owns the workspace.
func (s Scope) IsOwner() bool { return s.Role == models.RoleOwner }

// StartOfDay returns midnight of date's calendar day in the workspace zone.
func (s Scope) StartOfDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.Loc())
}

// DayRange returns [from 00:00:00, to+1day 00:00:00) in the workspace zone,
// converted to UTC for querying. The half-open upper bound covers every
// instant up to and including to 23:59:59.
func (s Scope) DayRange(from, to time.Time) (time.Time, time.Time) {
	start := s.StartOfDay(from)
	end := s.StartOfDay(to).AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// Today returns the current calendar date in the workspace zone, as
// midnight UTC for storage in date columns.
func (s Scope) Today(now time.Time) time.Time {
	y, m, d := now.In(s.Loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ctxKey struct{}

// WithScope stores the scope in ctx. Only the HTTP layer should use this;
// services take Scope as a parameter.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored by WithScope.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
