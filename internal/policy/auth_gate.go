package policy

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/httpx"
	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"gorm.io/gorm"
)

// AuthGate is the central authorization point: a HybridGate over cached
// membership roles with the resource policies registered.
type AuthGate struct {
	DB            *gorm.DB
	Gate          *gate.HybridGate[Subject]
	CacheResolver *gate.CachedResolver[Subject]
}

// NewAuthGate builds the gate. cacheTTL bounds how long a role change can
// take to be seen when the cache is not invalidated explicitly.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[Subject](NewMembershipResolver(db), cacheTTL)
	g := gate.NewHybridGate[Subject](cached)
	g.Register(ResourceTimeEntry, NewOwnershipPolicy())
	g.Register(ResourceMembership, NewMembershipPolicy(cached))
	return &AuthGate{DB: db, Gate: g, CacheResolver: cached}
}

// Authorize checks action on resource for the scope's user. Failures are
// domain errors (unauthenticated or permission denied).
func (ag *AuthGate) Authorize(ctx context.Context, s tenant.Scope, action gate.Action, resourceType string, resource any) error {
	err := ag.Gate.Authorize(ctx, SubjectFor(s), action, resourceType, resource)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthenticated):
		return ierr.WithError(err).
			WithHint("Authentication required").
			Mark(ierr.ErrUnauthenticated)
	default:
		return ierr.WithError(err).
			WithHintf("You are not allowed to %s this %s", action, resourceType).
			Mark(ierr.ErrPermissionDenied)
	}
}

// CanProfile checks only the role permission.
func (ag *AuthGate) CanProfile(ctx context.Context, s tenant.Scope, action gate.Action, resourceType string) bool {
	return ag.Gate.CanProfile(ctx, SubjectFor(s), action, resourceType)
}

// InvalidateMember drops the cached role of a user in a workspace.
// Call this after a role change or removal.
func (ag *AuthGate) InvalidateMember(workspaceID, userID uint) {
	ag.CacheResolver.Invalidate(Subject{UserID: userID, WorkspaceID: workspaceID})
}

func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// Workspace resolves the {workspace} path value for the authenticated user
// and stores the tenant.Scope in the request context. Non-members get 404
// so workspace ids are not disclosed.
func (ag *AuthGate) Workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		wsID, err := strconv.ParseUint(r.PathValue("workspace"), 10, 64)
		if err != nil || wsID == 0 {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		scope, err := ag.ResolveScope(r.Context(), uint(wsID), userID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), scope)))
	})
}

// ResolveScope loads the workspace and the user's membership in it.
func (ag *AuthGate) ResolveScope(ctx context.Context, workspaceID, userID uint) (tenant.Scope, error) {
	var m models.Membership
	err := ag.DB.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&m).Error
	if err == nil {
		var ws models.Workspace
		if err = ag.DB.WithContext(ctx).First(&ws, workspaceID).Error; err == nil {
			return tenant.New(&ws, &m), nil
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant.Scope{}, ierr.WithError(err).
			WithHint("Workspace not found").
			Mark(ierr.ErrNotFound)
	}
	return tenant.Scope{}, ierr.WithError(err).
		WithHint("Could not load workspace").
		Mark(ierr.ErrDatabase)
}

// RequirePermission returns middleware that checks the role permission of
// the scope set by Workspace.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := tenant.FromContext(r.Context())
			if !ok || !ag.CanProfile(r.Context(), scope, action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
