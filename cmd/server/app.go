package main

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/policy"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *RouterConfig
	log       *logger.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *RouterConfig, log *logger.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		log:       log,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := withRecover(a.log, a.routerCfg.Tokens.Middleware(a.mux))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.ready)
	a.mux.HandleFunc("POST /api/v1/auth/signup", ah.Signup)
	a.mux.HandleFunc("POST /api/v1/auth/login", ah.Login)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (no workspace scope)
	// ─────────────────────────────────────────────────────────────────────────
	wh := a.routerCfg.WorkspaceHandler
	invh := a.routerCfg.InviteHandler

	a.mux.Handle("GET /api/v1/me", a.requireAuth(http.HandlerFunc(ah.Me)))
	a.mux.Handle("GET /api/v1/workspaces", a.requireAuth(http.HandlerFunc(wh.List)))
	a.mux.Handle("POST /api/v1/workspaces", a.requireAuth(http.HandlerFunc(wh.Create)))
	a.mux.Handle("GET /api/v1/invites", a.requireAuth(http.HandlerFunc(invh.Mine)))
	a.mux.Handle("POST /api/v1/invites/{token}/accept", a.requireAuth(http.HandlerFunc(invh.Accept)))
	a.mux.Handle("POST /api/v1/invites/{token}/decline", a.requireAuth(http.HandlerFunc(invh.Decline)))

	// ─────────────────────────────────────────────────────────────────────────
	// Workspace routes (require auth + membership + role permission)
	// ─────────────────────────────────────────────────────────────────────────
	a.scoped("GET", "", policy.ResourceWorkspace, gate.ActionView, wh.Show)
	a.scoped("PATCH", "", policy.ResourceWorkspace, gate.ActionUpdate, wh.Update)
	a.scoped("DELETE", "", policy.ResourceWorkspace, gate.ActionDelete, wh.Delete)

	// Members; role changes and removals are re-checked against the membership policy
	a.scoped("GET", "/members", policy.ResourceMembership, gate.ActionList, wh.Members)
	a.scoped("PATCH", "/members/{id}", policy.ResourceMembership, gate.ActionUpdate, wh.ChangeRole)
	a.scoped("DELETE", "/members/{id}", policy.ResourceMembership, gate.ActionDelete, wh.RemoveMember)

	// Invites
	a.scoped("GET", "/invites", policy.ResourceInvite, gate.ActionList, invh.List)
	a.scoped("POST", "/invites", policy.ResourceInvite, gate.ActionCreate, invh.Create)
	a.scoped("DELETE", "/invites/{id}", policy.ResourceInvite, gate.ActionDelete, invh.Cancel)

	// Clients, projects and tags
	ch := a.routerCfg.CatalogHandler
	a.scoped("GET", "/clients", policy.ResourceClient, gate.ActionList, ch.ListClients)
	a.scoped("POST", "/clients", policy.ResourceClient, gate.ActionCreate, ch.CreateClient)
	a.scoped("GET", "/clients/{id}", policy.ResourceClient, gate.ActionView, ch.ShowClient)
	a.scoped("PATCH", "/clients/{id}", policy.ResourceClient, gate.ActionUpdate, ch.UpdateClient)
	a.scoped("DELETE", "/clients/{id}", policy.ResourceClient, gate.ActionDelete, ch.DeleteClient)

	a.scoped("GET", "/projects", policy.ResourceProject, gate.ActionList, ch.ListProjects)
	a.scoped("POST", "/projects", policy.ResourceProject, gate.ActionCreate, ch.CreateProject)
	a.scoped("GET", "/projects/{id}", policy.ResourceProject, gate.ActionView, ch.ShowProject)
	a.scoped("PATCH", "/projects/{id}", policy.ResourceProject, gate.ActionUpdate, ch.UpdateProject)
	a.scoped("DELETE", "/projects/{id}", policy.ResourceProject, gate.ActionDelete, ch.DeleteProject)

	a.scoped("GET", "/tags", policy.ResourceTag, gate.ActionList, ch.ListTags)
	a.scoped("POST", "/tags", policy.ResourceTag, gate.ActionCreate, ch.CreateTag)
	a.scoped("PATCH", "/tags/{id}", policy.ResourceTag, gate.ActionUpdate, ch.UpdateTag)
	a.scoped("DELETE", "/tags/{id}", policy.ResourceTag, gate.ActionDelete, ch.DeleteTag)

	// Time entries; ownership is enforced by the service
	th := a.routerCfg.TimeEntryHandler
	a.scoped("GET", "/time_entries", policy.ResourceTimeEntry, gate.ActionList, th.List)
	a.scoped("POST", "/time_entries", policy.ResourceTimeEntry, gate.ActionCreate, th.Create)
	a.scoped("GET", "/time_entries/running", policy.ResourceTimeEntry, gate.ActionView, th.Running)
	a.scoped("POST", "/time_entries/start", policy.ResourceTimeEntry, gate.ActionCreate, th.Start)
	a.scoped("GET", "/time_entries/{id}", policy.ResourceTimeEntry, gate.ActionView, th.Show)
	a.scoped("PATCH", "/time_entries/{id}", policy.ResourceTimeEntry, gate.ActionUpdate, th.Update)
	a.scoped("POST", "/time_entries/{id}/stop", policy.ResourceTimeEntry, gate.ActionUpdate, th.Stop)
	a.scoped("DELETE", "/time_entries/{id}", policy.ResourceTimeEntry, gate.ActionDelete, th.Delete)

	// Invoices
	ih := a.routerCfg.InvoiceHandler
	a.scoped("GET", "/invoices", policy.ResourceInvoice, gate.ActionList, ih.List)
	a.scoped("POST", "/invoices", policy.ResourceInvoice, gate.ActionCreate, ih.Generate)
	a.scoped("GET", "/invoices/{id}", policy.ResourceInvoice, gate.ActionView, ih.Show)
	a.scoped("PATCH", "/invoices/{id}", policy.ResourceInvoice, gate.ActionUpdate, ih.UpdateStatus)
	a.scoped("DELETE", "/invoices/{id}", policy.ResourceInvoice, gate.ActionDelete, ih.Delete)
	a.scoped("GET", "/invoices/{id}/pdf", policy.ResourceInvoice, gate.ActionView, ih.PDF)
	a.scoped("POST", "/invoices/{id}/send", policy.ResourceInvoice, policy.ActionSend, ih.Send)

	// Billing settings and reports
	sh := a.routerCfg.SettingsHandler
	a.scoped("GET", "/settings/billing", policy.ResourceInvoiceSetting, gate.ActionView, sh.Show)
	a.scoped("PUT", "/settings/billing", policy.ResourceInvoiceSetting, gate.ActionUpdate, sh.Update)
	a.scoped("GET", "/reports", policy.ResourceReport, gate.ActionView, a.routerCfg.ReportHandler.Summary)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// scoped registers a handler under /api/v1/workspaces/{workspace}.
func (a *App) scoped(method, path, resourceType string, action gate.Action, h http.HandlerFunc) {
	pattern := method + " /api/v1/workspaces/{workspace}" + path
	a.mux.Handle(pattern, a.requireAuth(a.inWorkspace(a.requirePermission(resourceType, action)(h))))
}

// requireAuth wraps a handler to require an authenticated user.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

// inWorkspace resolves the {workspace} path value into a tenant scope.
func (a *App) inWorkspace(next http.Handler) http.Handler {
	return a.routerCfg.AuthGate.Workspace(next)
}

// requirePermission wraps a handler to require specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequirePermission(resourceType, action)
}

// withRecover turns a handler panic into a 500 JSON response.
func withRecover(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorw("panic serving request",
					"method", r.Method, "path", r.URL.Path,
					"panic", rec, "stack", string(debug.Stack()))
				httpx.JSONError(w, http.StatusInternalServerError, "system_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs every request with a generated request id, echoed in
// the X-Request-ID header.
func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Infow("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports 503 while the database does not answer.
func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		a.log.Warnw("readiness check failed", "error", err)
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
