package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/httpx"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/services"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/samber/lo"
)

// EmptySelectionMessage answers a generation that found nothing to bill.
const EmptySelectionMessage = "No unbilled time entries found for this period."

type InvoiceHandler struct {
	generator *services.InvoiceGenerator
	invoices  *services.InvoiceService
	settings  *services.SettingsService
}

func NewInvoiceHandler(generator *services.InvoiceGenerator, invoices *services.InvoiceService, settings *services.SettingsService) *InvoiceHandler {
	return &InvoiceHandler{generator: generator, invoices: invoices, settings: settings}
}

type invoiceJSON struct {
	models.Invoice
	Number         string `json:"number"`
	FormattedTotal string `json:"formatted_total"`
}

func toInvoiceJSON(inv *models.Invoice) invoiceJSON {
	return invoiceJSON{Invoice: *inv, Number: inv.Number(), FormattedTotal: inv.FormattedTotal()}
}

// List: GET .../invoices?status=&client_id=&limit=&page=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	f := services.InvoiceFilter{
		Status: models.InvoiceStatus(q.Get("status")),
		Page:   page(r),
	}
	if id := optionalUint("client_id", q.Get("client_id"), v); id != nil {
		f.ClientID = *id
	}
	if !v.Empty() {
		httpx.WriteError(w, invalid(v))
		return
	}
	list, err := h.invoices.List(r.Context(), scopeOf(r), f)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	items := lo.Map(list, func(inv models.Invoice, _ int) invoiceJSON { return toInvoiceJSON(&inv) })
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type generateRequest struct {
	ClientID    uint   `json:"client_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	RateCents   *int64 `json:"rate_cents"`
	OnlyMine    bool   `json:"only_mine"`
}

// Generate: POST .../invoices
//
// Without rate_cents the workspace billing rate applies. An empty
// selection is not an error: it answers 200 with a null invoice.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	sc := scopeOf(r)
	v := validation.Violations{}
	p := services.GenerateParams{
		ClientID:    req.ClientID,
		PeriodStart: validation.Date("period_start", req.PeriodStart, v),
		PeriodEnd:   validation.Date("period_end", req.PeriodEnd, v),
	}
	if !v.Empty() {
		httpx.WriteError(w, invalid(v))
		return
	}
	if req.RateCents != nil {
		p.RateCents = *req.RateCents
	} else {
		setting, err := h.settings.Get(r.Context(), sc)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		p.RateCents = setting.BillableRateCents
	}
	if req.OnlyMine {
		uid, _ := auth.UserIDFromContext(r.Context())
		p.UserID = &uid
	}

	inv, err := h.generator.Generate(r.Context(), sc, p)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if inv == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"invoice": nil, "message": EmptySelectionMessage})
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice": toInvoiceJSON(inv)})
}

func (h *InvoiceHandler) Show(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		inv, err := h.invoices.Get(r.Context(), scopeOf(r), id)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toInvoiceJSON(inv))
	})
}

// UpdateStatus: PATCH .../invoices/{id} {"status": "issued"}
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req struct {
			Status models.InvoiceStatus `json:"status"`
		}
		if !decode(w, r, &req) {
			return
		}
		inv, err := h.invoices.UpdateStatus(r.Context(), scopeOf(r), id, req.Status)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toInvoiceJSON(inv))
	})
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		respond(w, http.StatusNoContent, nil, h.invoices.Delete(r.Context(), scopeOf(r), id))
	})
}

// PDF: GET .../invoices/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		name, body, err := h.invoices.PDF(r.Context(), scopeOf(r), id)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

// Send: POST .../invoices/{id}/send
//
// The email goes out asynchronously; 202 means it was queued.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id uint) {
		var req struct {
			Recipients []string `json:"recipients"`
			CC         []string `json:"cc"`
			Message    string   `json:"message"`
		}
		if !decode(w, r, &req) {
			return
		}
		err := h.invoices.Send(r.Context(), scopeOf(r), id, services.SendParams{
			Recipients: req.Recipients,
			CC:         req.CC,
			Message:    req.Message,
		})
		respond(w, http.StatusAccepted, map[string]string{"status": "queued"}, err)
	})
}
