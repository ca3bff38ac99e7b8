package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/services"
)

// CatalogHandler serves clients, projects and tags.
type CatalogHandler struct {
	svc *services.CatalogService
}

func NewCatalogHandler(svc *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// withID runs fn with the {id} path value, answering 404 when it is not a
// number.
func withID(w http.ResponseWriter, r *http.Request, fn func(id uint)) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	fn(id)
}

// respond writes v with status, or the error.
func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	httpx.JSON(w, status, v)
}

// Clients

func (h *CatalogHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListClients(r.Context(), scopeOf(r))
	respond(w, http.StatusOK, map[string]any{"items": list}, err)
}

func (h *CatalogHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req services.ClientParams
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateClient(r.Context(), scopeOf(r), req)
	respond(w, http.StatusCreated, c, err)
}

func (h *CatalogHandler) ShowClient(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		c, err := h.svc.GetClient(r.Context(), scopeOf(r), id)
		respond(w, http.StatusOK, c, err)
	})
}

func (h *CatalogHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req services.ClientParams
		if !decode(w, r, &req) {
			return
		}
		c, err := h.svc.UpdateClient(r.Context(), scopeOf(r), id, req)
		respond(w, http.StatusOK, c, err)
	})
}

func (h *CatalogHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		respond(w, http.StatusNoContent, nil, h.svc.DeleteClient(r.Context(), scopeOf(r), id))
	})
}

// Projects

type projectRequest struct {
	Name            *string `json:"name"`
	ClientID        *uint   `json:"client_id"`
	Color           *string `json:"color"`
	BillableDefault *bool   `json:"billable_default"`
}

func (req projectRequest) params() services.ProjectParams {
	return services.ProjectParams{
		Name:            req.Name,
		ClientID:        req.ClientID,
		Color:           req.Color,
		BillableDefault: req.BillableDefault,
	}
}

func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListProjects(r.Context(), scopeOf(r))
	respond(w, http.StatusOK, map[string]any{"items": list}, err)
}

func (h *CatalogHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProject(r.Context(), scopeOf(r), req.params())
	respond(w, http.StatusCreated, p, err)
}

func (h *CatalogHandler) ShowProject(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		p, err := h.svc.GetProject(r.Context(), scopeOf(r), id)
		respond(w, http.StatusOK, p, err)
	})
}

func (h *CatalogHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req projectRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := h.svc.UpdateProject(r.Context(), scopeOf(r), id, req.params())
		respond(w, http.StatusOK, p, err)
	})
}

func (h *CatalogHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		respond(w, http.StatusNoContent, nil, h.svc.DeleteProject(r.Context(), scopeOf(r), id))
	})
}

// Tags

type tagRequest struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTags(r.Context(), scopeOf(r))
	respond(w, http.StatusOK, map[string]any{"items": list}, err)
}

func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTag(r.Context(), scopeOf(r), req.Name)
	respond(w, http.StatusCreated, t, err)
}

func (h *CatalogHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req tagRequest
		if !decode(w, r, &req) {
			return
		}
		t, err := h.svc.RenameTag(r.Context(), scopeOf(r), id, req.Name)
		respond(w, http.StatusOK, t, err)
	})
}

func (h *CatalogHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		respond(w, http.StatusNoContent, nil, h.svc.DeleteTag(r.Context(), scopeOf(r), id))
	})
}
