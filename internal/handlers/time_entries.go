package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/services"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/samber/lo"
)

type TimeEntryHandler struct {
	svc *services.TimeEntryService
}

func NewTimeEntryHandler(svc *services.TimeEntryService) *TimeEntryHandler {
	return &TimeEntryHandler{svc: svc}
}

type timeEntryJSON struct {
	models.TimeEntry
	Running  bool   `json:"running"`
	Duration string `json:"duration"`
}

func entryJSON(e models.TimeEntry) timeEntryJSON {
	return timeEntryJSON{TimeEntry: e, Running: e.Running(), Duration: e.FormattedDuration()}
}

func entriesJSON(entries []models.TimeEntry) []timeEntryJSON {
	return lo.Map(entries, func(e models.TimeEntry, _ int) timeEntryJSON { return entryJSON(e) })
}

type timeEntryRequest struct {
	Description *string    `json:"description"`
	ProjectID   *uint      `json:"project_id"`
	TagIDs      *[]uint    `json:"tag_ids"`
	Billable    *bool      `json:"billable"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

func (req timeEntryRequest) create() services.TimeEntryParams {
	p := services.TimeEntryParams{
		Description: lo.FromPtr(req.Description),
		ProjectID:   req.ProjectID,
		Billable:    req.Billable,
		StartAt:     lo.FromPtr(req.StartAt),
		EndAt:       req.EndAt,
	}
	if req.TagIDs != nil {
		p.TagIDs = *req.TagIDs
	}
	return p
}

func (req timeEntryRequest) update() services.TimeEntryUpdate {
	return services.TimeEntryUpdate{
		Description: req.Description,
		ProjectID:   req.ProjectID,
		TagIDs:      req.TagIDs,
		Billable:    req.Billable,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	}
}

// List: GET .../time_entries?from=&to=&project_id=&running=&limit=&page=
func (h *TimeEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	f := services.TimeEntryFilter{
		From:      optionalDate("from", q.Get("from"), v),
		To:        optionalDate("to", q.Get("to"), v),
		ProjectID: optionalUint("project_id", q.Get("project_id"), v),
		Running:   optionalBool("running", q.Get("running"), v),
		Page:      page(r),
	}
	if !v.Empty() {
		httpx.WriteError(w, invalid(v))
		return
	}
	entries, err := h.svc.List(r.Context(), scopeOf(r), f)
	respond(w, http.StatusOK, map[string]any{"items": entriesJSON(entries)}, err)
}

// Running: GET .../time_entries/running
func (h *TimeEntryHandler) Running(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Running(r.Context(), scopeOf(r))
	respond(w, http.StatusOK, map[string]any{"items": entriesJSON(entries)}, err)
}

// Start: POST .../time_entries/start
func (h *TimeEntryHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if !decode(w, r, &req) {
		return
	}
	h.write(w, http.StatusCreated)(h.svc.Start(r.Context(), scopeOf(r), req.create()))
}

// Create: POST .../time_entries
func (h *TimeEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if !decode(w, r, &req) {
		return
	}
	h.write(w, http.StatusCreated)(h.svc.Create(r.Context(), scopeOf(r), req.create()))
}

func (h *TimeEntryHandler) Show(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		h.write(w, http.StatusOK)(h.svc.Get(r.Context(), scopeOf(r), id))
	})
}

func (h *TimeEntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req timeEntryRequest
		if !decode(w, r, &req) {
			return
		}
		h.write(w, http.StatusOK)(h.svc.Update(r.Context(), scopeOf(r), id, req.update()))
	})
}

// Stop: POST .../time_entries/{id}/stop
func (h *TimeEntryHandler) Stop(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		h.write(w, http.StatusOK)(h.svc.Stop(r.Context(), scopeOf(r), id))
	})
}

func (h *TimeEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		respond(w, http.StatusNoContent, nil, h.svc.Delete(r.Context(), scopeOf(r), id))
	})
}

func (h *TimeEntryHandler) write(w http.ResponseWriter, status int) func(*models.TimeEntry, error) {
	return func(e *models.TimeEntry, err error) {
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.JSON(w, status, entryJSON(*e))
	}
}
