package services

import (
	"context"
	"time"

	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/notify"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/pdf"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// InvoiceNotifier queues invoice emails.
type InvoiceNotifier interface {
	InvoiceSend(e notify.InvoiceSend) error
}

type InvoiceFilter struct {
	Status   models.InvoiceStatus
	ClientID uint
	Page     Page
}

type SendParams struct {
	Recipients []string
	CC         []string
	Message    string
}

// InvoiceService reads and updates generated invoices.
type InvoiceService struct {
	db       *gorm.DB
	notifier InvoiceNotifier
	now      func() time.Time
}

func NewInvoiceService(db *gorm.DB, notifier InvoiceNotifier) *InvoiceService {
	return &InvoiceService{db: db, notifier: notifier, now: time.Now}
}

// List returns invoices, newest first.
func (s *InvoiceService) List(ctx context.Context, sc tenant.Scope, f InvoiceFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Preload("Client").Where("workspace_id = ?", sc.WorkspaceID)
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, validationError(validation.Violations{"status": "invalid_value"})
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	var invoices []models.Invoice
	if err := f.Page.apply(q).Order("issued_on DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, dbError(err, "invoices")
	}
	return invoices, nil
}

// Get returns an invoice with its client and lines.
func (s *InvoiceService) Get(ctx context.Context, sc tenant.Scope, id uint) (*models.Invoice, error) {
	return getInvoice(s.db.WithContext(ctx), sc.WorkspaceID, id)
}

// UpdateStatus moves the invoice one step forward. Setting the current
// status again is a no-op; anything else is a conflict.
func (s *InvoiceService) UpdateStatus(ctx context.Context, sc tenant.Scope, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, validationError(validation.Violations{"status": "invalid_value"})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&inv, id).Error; err != nil {
			return dbError(err, "invoice")
		}
		if inv.Status == status {
			return nil
		}
		if !inv.Status.CanTransitionTo(status) {
			return conflict("Invoice cannot move from " + string(inv.Status) + " to " + string(status))
		}
		updates := map[string]any{"status": status}
		if status == models.InvoiceStatusIssued {
			updates["issued_on"] = sc.Today(s.now())
		}
		return tx.Model(&inv).Updates(updates).Error
	})
	if err != nil {
		return nil, passThrough(err, "invoice")
	}
	return s.Get(ctx, sc, id)
}

// Delete removes the invoice and its lines. Their entries become unbilled.
func (s *InvoiceService) Delete(ctx context.Context, sc tenant.Scope, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&inv, id).Error; err != nil {
			return dbError(err, "invoice")
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&inv).Error
	})
	return passThrough(err, "invoice")
}

// Send queues the invoice email and returns without waiting for it.
func (s *InvoiceService) Send(ctx context.Context, sc tenant.Scope, id uint, p SendParams) error {
	p.Recipients = normalizeEmails(p.Recipients)
	p.CC = normalizeEmails(p.CC)
	v := validation.Violations{}
	if len(p.Recipients) == 0 {
		v.Add("recipients", "required")
	}
	for _, e := range p.Recipients {
		if !validation.Email(e) {
			v.Add("recipients", "invalid_email")
		}
	}
	for _, e := range p.CC {
		if !validation.Email(e) {
			v.Add("cc", "invalid_email")
		}
	}
	if !v.Empty() {
		return validationError(v)
	}
	if _, err := s.Get(ctx, sc, id); err != nil {
		return err
	}
	if err := s.notifier.InvoiceSend(notify.InvoiceSend{
		WorkspaceID: sc.WorkspaceID,
		InvoiceID:   id,
		Recipients:  p.Recipients,
		CC:          p.CC,
		Message:     p.Message,
	}); err != nil {
		return ierr.WithError(err).
			WithHint("Could not queue the invoice email").
			Mark(ierr.ErrSystem)
	}
	return nil
}

// PDF renders the invoice and returns its download filename.
func (s *InvoiceService) PDF(ctx context.Context, sc tenant.Scope, id uint) (string, []byte, error) {
	doc, err := s.InvoiceDocument(ctx, sc.WorkspaceID, id)
	if err != nil {
		return "", nil, err
	}
	body, err := pdf.InvoicePDF(doc.Data)
	if err != nil {
		return "", nil, dbError(err, "invoice document")
	}
	return doc.Filename, body, nil
}

// InvoiceDocument loads everything printed on an invoice. It implements
// notify.InvoiceSource.
func (s *InvoiceService) InvoiceDocument(ctx context.Context, workspaceID, invoiceID uint) (*notify.InvoiceDocument, error) {
	db := s.db.WithContext(ctx)
	inv, err := getInvoice(db, workspaceID, invoiceID)
	if err != nil {
		return nil, err
	}
	setting, err := loadSettings(db, workspaceID)
	if err != nil {
		return nil, dbError(err, "invoice settings")
	}
	var client models.Client
	if inv.Client != nil {
		client = *inv.Client
	}
	data := pdf.InvoiceData{
		InvoiceNumber: inv.Number(),
		IssuedOn:      inv.IssuedOn,
		PeriodStart:   inv.PeriodStart,
		PeriodEnd:     inv.PeriodEnd,
		TotalCents:    inv.TotalCents,
		Client:        pdf.ClientData{Name: client.Name, Address: client.BillingAddress},
		Company:       pdf.CompanyData{Name: setting.SenderName, Address: setting.SenderAddress},
		Items: lo.Map(inv.Lines, func(l models.InvoiceLine, _ int) pdf.InvoiceItem {
			return pdf.InvoiceItem{
				Description: l.Description,
				QtyHours:    l.QtyHours,
				RateCents:   l.RateCents,
				AmountCents: l.AmountCents,
			}
		}),
	}
	return &notify.InvoiceDocument{
		Data:     data,
		Filename: pdf.Filename(client.Name, inv.PeriodStart, inv.PeriodEnd),
	}, nil
}

func getInvoice(db *gorm.DB, workspaceID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := db.Preload("Client").
		Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
		Where("workspace_id = ?", workspaceID).
		First(&inv, id).Error
	if err != nil {
		return nil, dbError(err, "invoice")
	}
	return &inv, nil
}

func normalizeEmails(in []string) []string {
	out := lo.FilterMap(in, func(e string, _ int) (string, bool) {
		e = models.NormalizeEmail(e)
		return e, e != ""
	})
	return lo.Uniq(out)
}
