package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/services"
)

type InviteHandler struct {
	svc *services.InviteService
}

func NewInviteHandler(svc *services.InviteService) *InviteHandler {
	return &InviteHandler{svc: svc}
}

// List: GET /api/v1/workspaces/{workspace}/invites
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	invites, err := h.svc.ListPending(r.Context(), scopeOf(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invites})
}

// Create: POST /api/v1/workspaces/{workspace}/invites
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	if !decode(w, r, &req) {
		return
	}
	invite, err := h.svc.Create(r.Context(), scopeOf(r), services.InviteParams{Email: req.Email, Role: req.Role})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invite)
}

// Cancel: DELETE /api/v1/workspaces/{workspace}/invites/{id}
func (h *InviteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.svc.Cancel(r.Context(), scopeOf(r), id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mine: GET /api/v1/invites
func (h *InviteHandler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	invites, err := h.svc.ListForUser(r.Context(), uid)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invites})
}

// Accept: POST /api/v1/invites/{token}/accept
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	m, err := h.svc.Accept(r.Context(), uid, r.PathValue("token"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// Decline: POST /api/v1/invites/{token}/decline
func (h *InviteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.svc.Decline(r.Context(), uid, r.PathValue("token")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
