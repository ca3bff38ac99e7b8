package services

import (
	"context"
	"errors"
	"time"

	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/money"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// GenerateParams selects what to bill. PeriodStart and PeriodEnd are
// calendar dates interpreted in the workspace time zone. A non-nil UserID
// restricts billing to that user's entries.
type GenerateParams struct {
	ClientID    uint
	PeriodStart time.Time
	PeriodEnd   time.Time
	RateCents   int64
	UserID      *uint
}

func (p GenerateParams) validate() validation.Violations {
	v := validation.Violations{}
	if p.ClientID == 0 {
		v.Add("client_id", "required")
	}
	if p.PeriodStart.IsZero() {
		v.Add("period_start", "required")
	}
	if p.PeriodEnd.IsZero() {
		v.Add("period_end", "required")
	}
	if !p.PeriodStart.IsZero() && !p.PeriodEnd.IsZero() && calendarDate(p.PeriodEnd).Before(calendarDate(p.PeriodStart)) {
		v.Add("period_end", "before_period_start")
	}
	validation.NonNegative("rate_cents", p.RateCents, v)
	return v
}

// InvoiceGenerator turns unbilled time entries into a draft invoice.
type InvoiceGenerator struct {
	db  *gorm.DB
	now func() time.Time
}

func NewInvoiceGenerator(db *gorm.DB) *InvoiceGenerator {
	return &InvoiceGenerator{db: db, now: time.Now}
}

// Generate bills every eligible entry of the client's projects in the
// period. It returns (nil, nil) and writes nothing when no entry is
// eligible. The invoice, its lines and its total are written in one
// transaction; an entry billed concurrently by another generation makes
// this one fail with a conflict.
func (g *InvoiceGenerator) Generate(ctx context.Context, s tenant.Scope, p GenerateParams) (*models.Invoice, error) {
	if v := p.validate(); !v.Empty() {
		return nil, validationError(v)
	}

	var client models.Client
	if err := g.db.WithContext(ctx).
		Where("workspace_id = ?", s.WorkspaceID).
		First(&client, p.ClientID).Error; err != nil {
		return nil, dbError(err, "client")
	}

	from, to := s.DayRange(p.PeriodStart, p.PeriodEnd)
	var invoice *models.Invoice
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries, err := unbilledEntries(tx, s, p, from, to)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		inv := models.Invoice{
			WorkspaceID: s.WorkspaceID,
			ClientID:    client.ID,
			PeriodStart: calendarDate(p.PeriodStart),
			PeriodEnd:   calendarDate(p.PeriodEnd),
			IssuedOn:    s.Today(g.now()),
			Status:      models.InvoiceStatusDraft,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}

		lines := lo.Map(entries, func(e models.TimeEntry, _ int) models.InvoiceLine {
			return models.InvoiceLine{
				InvoiceID:   inv.ID,
				TimeEntryID: lo.ToPtr(e.ID),
				Description: e.Description,
				QtyHours:    money.Hours(e.DurationSeconds),
				RateCents:   p.RateCents,
				AmountCents: money.LineAmountCents(e.DurationSeconds, p.RateCents),
			}
		})
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}

		inv.TotalCents = lo.SumBy(lines, func(l models.InvoiceLine) int64 { return l.AmountCents })
		if err := tx.Model(&inv).Update("total_cents", inv.TotalCents).Error; err != nil {
			return err
		}
		inv.Lines = lines
		inv.Client = &client
		invoice = &inv
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ierr.WithError(err).
			WithHint("Some time entries were billed by another invoice in the meantime. Try again.").
			Mark(ierr.ErrConflict)
	}
	if err != nil {
		return nil, dbError(err, "invoice")
	}
	return invoice, nil
}

// unbilledEntries is the candidate set minus every entry already
// referenced by an invoice line, ordered by start.
func unbilledEntries(tx *gorm.DB, s tenant.Scope, p GenerateParams, from, to time.Time) ([]models.TimeEntry, error) {
	billed := tx.Model(&models.InvoiceLine{}).
		Select("time_entry_id").
		Where("time_entry_id IS NOT NULL")

	q := tx.Model(&models.TimeEntry{}).
		Joins("JOIN projects ON projects.id = time_entries.project_id").
		Where("time_entries.workspace_id = ?", s.WorkspaceID).
		Where("projects.workspace_id = ? AND projects.client_id = ?", s.WorkspaceID, p.ClientID).
		Where("time_entries.end_at IS NOT NULL").
		Where("time_entries.billable = ?", true).
		Where("time_entries.duration_seconds >= ?", models.MinBillableSeconds).
		Where("time_entries.start_at >= ? AND time_entries.start_at < ?", from, to).
		Where("time_entries.id NOT IN (?)", billed)
	if p.UserID != nil {
		q = q.Where("time_entries.user_id = ?", *p.UserID)
	}

	var entries []models.TimeEntry
	err := q.Order("time_entries.start_at ASC, time_entries.id ASC").Find(&entries).Error
	return entries, err
}
