package handlers

import (
	"net/http"

	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/services"
	"github.com/diewo77/go-timesheets/validation"
)

type ReportHandler struct {
	svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Summary: GET .../reports?from=YYYY-MM-DD&to=YYYY-MM-DD&mine=true
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	p := services.ReportParams{
		From: optionalDate("from", q.Get("from"), v),
		To:   optionalDate("to", q.Get("to"), v),
	}
	if mine := optionalBool("mine", q.Get("mine"), v); mine != nil {
		p.Mine = *mine
	}
	if !v.Empty() {
		httpx.WriteError(w, invalid(v))
		return
	}
	report, err := h.svc.Summarize(r.Context(), scopeOf(r), p)
	respond(w, http.StatusOK, report, err)
}
