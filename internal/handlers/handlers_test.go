package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-timesheets/internal/db"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/notify"
	"github.com/diewo77/go-timesheets/internal/services"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type nopNotifier struct{}

func (nopNotifier) InvoiceSend(notify.InvoiceSend) error { return nil }

type fixture struct {
	db      *gorm.DB
	scope   tenant.Scope
	client  models.Client
	project models.Project
	h       *InvoiceHandler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.NewNop(), false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	sqlDB, err := d.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &fixture{db: d}
	owner := models.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x"}
	require.NoError(t, d.Create(&owner).Error)
	ws := models.Workspace{Name: "Studio", OwnerID: owner.ID, TimeZone: "UTC"}
	require.NoError(t, d.Create(&ws).Error)
	m := models.Membership{WorkspaceID: ws.ID, UserID: owner.ID, Role: models.RoleOwner}
	require.NoError(t, d.Create(&m).Error)
	f.scope = tenant.New(&ws, &m)

	f.client = models.Client{WorkspaceID: ws.ID, Name: "Acme"}
	require.NoError(t, d.Create(&f.client).Error)
	f.project = models.Project{WorkspaceID: ws.ID, ClientID: &f.client.ID, Name: "Website", Color: "#458588"}
	require.NoError(t, d.Create(&f.project).Error)

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	entry := models.TimeEntry{
		WorkspaceID:     ws.ID,
		UserID:          owner.ID,
		ProjectID:       &f.project.ID,
		Description:     "Review",
		Billable:        true,
		StartAt:         start,
		EndAt:           &end,
		DurationSeconds: 1200,
	}
	require.NoError(t, d.Create(&entry).Error)

	f.h = NewInvoiceHandler(
		services.NewInvoiceGenerator(d),
		services.NewInvoiceService(d, nopNotifier{}),
		services.NewSettingsService(d),
	)
	return f
}

// request builds a request that already went through the workspace
// middleware.
func (f *fixture) request(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	return r.WithContext(tenant.WithScope(r.Context(), f.scope))
}

func (f *fixture) generate(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.h.Generate(w, f.request(http.MethodPost, "/invoices", body))
	return w
}

func TestGenerateUsesWorkspaceRate(t *testing.T) {
	f := setup(t)
	_, err := services.NewSettingsService(f.db).Update(t.Context(), f.scope, services.SettingsParams{
		SenderName: "Studio", BillableRateCents: 9000,
	})
	require.NoError(t, err)

	w := f.generate(t, map[string]any{
		"client_id": f.client.ID, "period_start": "2024-03-01", "period_end": "2024-03-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Invoice struct {
			TotalCents     int64  `json:"total_cents"`
			FormattedTotal string `json:"formatted_total"`
			Lines          []struct {
				RateCents int64 `json:"rate_cents"`
			} `json:"lines"`
		} `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3000), resp.Invoice.TotalCents)
	require.Len(t, resp.Invoice.Lines, 1)
	assert.Equal(t, int64(9000), resp.Invoice.Lines[0].RateCents)
	assert.NotEmpty(t, resp.Invoice.FormattedTotal)
}

func TestGenerateExplicitRateAndEmptySelection(t *testing.T) {
	f := setup(t)

	w := f.generate(t, map[string]any{
		"client_id": f.client.ID, "period_start": "2024-03-01", "period_end": "2024-03-31", "rate_cents": 6000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total_cents":2000`)

	w = f.generate(t, map[string]any{
		"client_id": f.client.ID, "period_start": "2024-03-01", "period_end": "2024-03-31", "rate_cents": 6000,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"invoice":null,"message":"`+EmptySelectionMessage+`"}`, w.Body.String())
}

func TestGenerateValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
		code  string
	}{
		{"missing start", map[string]any{"client_id": f.client.ID, "period_end": "2024-03-31"}, "period_start", "required"},
		{"bad end", map[string]any{"client_id": f.client.ID, "period_start": "2024-03-01", "period_end": "31.03.2024"}, "period_end", "invalid_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.generate(t, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp struct {
				Error   string            `json:"error"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation_error", resp.Error)
			assert.Equal(t, tt.code, resp.Details[tt.field])
		})
	}

	w := f.generate(t, map[string]any{"client_id": f.client.ID, "unknown": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoicePDFHeaders(t *testing.T) {
	f := setup(t)
	w := f.generate(t, map[string]any{
		"client_id": f.client.ID, "period_start": "2024-03-01", "period_end": "2024-03-31", "rate_cents": 6000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Invoice struct {
			ID uint `json:"id"`
		} `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	r := f.request(http.MethodGet, "/invoices/x/pdf", nil)
	r.SetPathValue("id", fmt.Sprint(resp.Invoice.ID))
	w = httptest.NewRecorder()
	f.h.PDF(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="invoice-acme-20240301-20240331.pdf"`)
	assert.Equal(t, fmt.Sprint(w.Body.Len()), w.Header().Get("Content-Length"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	r = f.request(http.MethodGet, "/invoices/abc/pdf", nil)
	r.SetPathValue("id", "abc")
	w = httptest.NewRecorder()
	f.h.PDF(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPage(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", services.DefaultPageSize, 0},
		{"?limit=10&page=3", 10, 20},
		{"?limit=100000", services.MaxPageSize, 0},
		{"?limit=-1&page=0", services.DefaultPageSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := page(httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil))
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}
