package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/services"
)

type WorkspaceHandler struct {
	svc *services.WorkspaceService
}

func NewWorkspaceHandler(svc *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

type workspaceRequest struct {
	Name     *string `json:"name"`
	TimeZone *string `json:"time_zone"`
}

func (req workspaceRequest) params() services.WorkspaceParams {
	return services.WorkspaceParams{Name: req.Name, TimeZone: req.TimeZone}
}

// List: GET /api/v1/workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	list, err := h.svc.ListForUser(r.Context(), uid)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list})
}

// Create: POST /api/v1/workspaces
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if !decode(w, r, &req) {
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	ws, err := h.svc.Create(r.Context(), uid, req.params())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) Show(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Get(r.Context(), scopeOf(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if !decode(w, r, &req) {
		return
	}
	ws, err := h.svc.Update(r.Context(), scopeOf(r), req.params())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), scopeOf(r)); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Members: GET /api/v1/workspaces/{workspace}/members
func (h *WorkspaceHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context(), scopeOf(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": members})
}

// ChangeRole: PATCH /api/v1/workspaces/{workspace}/members/{id}
func (h *WorkspaceHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.ChangeRole(r.Context(), scopeOf(r), id, req.Role)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// RemoveMember: DELETE /api/v1/workspaces/{workspace}/members/{id}
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.svc.RemoveMember(r.Context(), scopeOf(r), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
