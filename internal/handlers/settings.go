package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/internal/services"
)

type SettingsHandler struct {
	svc *services.SettingsService
}

func NewSettingsHandler(svc *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Show: GET .../settings/billing
func (h *SettingsHandler) Show(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context(), scopeOf(r))
	respond(w, http.StatusOK, s, err)
}

// Update: PUT .../settings/billing
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderName        string `json:"sender_name"`
		SenderAddress     string `json:"sender_address"`
		BillableRateCents int64  `json:"billable_rate_cents"`
	}
	if !decode(w, r, &req) {
		return
	}
	s, err := h.svc.Update(r.Context(), scopeOf(r), services.SettingsParams{
		SenderName:        req.SenderName,
		SenderAddress:     req.SenderAddress,
		BillableRateCents: req.BillableRateCents,
	})
	respond(w, http.StatusOK, s, err)
}
