package models

import (
	"fmt"
	"time"

	"github.com/diewo77/go-timesheets/internal/money"
)

// InvoiceStatus moves linearly: draft -> issued -> paid.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

var statusOrder = map[InvoiceStatus]int{
	InvoiceStatusDraft:  0,
	InvoiceStatusIssued: 1,
	InvoiceStatusPaid:   2,
}

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransitionTo allows only the next step forward.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	from, ok1 := statusOrder[s]
	to, ok2 := statusOrder[next]
	return ok1 && ok2 && to == from+1
}

// Invoice bills a client for a period. TotalCents always equals the sum of
// its lines' AmountCents.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint    `gorm:"index;not null" json:"workspace_id"`
	ClientID    uint    `gorm:"index;not null" json:"client_id"`
	Client      *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	// Calendar dates, stored at midnight UTC.
	PeriodStart time.Time `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null" json:"period_end"`
	IssuedOn    time.Time `gorm:"type:date;not null" json:"issued_on"`

	Status     InvoiceStatus `gorm:"size:20;not null;default:'draft'" json:"status"`
	TotalCents int64         `gorm:"not null;default:0" json:"total_cents"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

// Number is the human-facing invoice number printed on documents.
func (i *Invoice) Number() string {
	return fmt.Sprintf("%08X-%04d", i.ID, i.ID)
}

// FormattedTotal renders the total as "$123.45".
func (i *Invoice) FormattedTotal() string {
	return money.Format(i.TotalCents)
}

// LinesTotal sums the loaded lines.
func (i *Invoice) LinesTotal() int64 {
	var total int64
	for _, l := range i.Lines {
		total += l.AmountCents
	}
	return total
}

// InvoiceLine is one billed item. TimeEntryID is nil for manual lines or
// after the originating entry was deleted; when set it is unique, so an
// entry can be billed at most once.
type InvoiceLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID   uint  `gorm:"index;not null" json:"invoice_id"`
	TimeEntryID *uint `gorm:"uniqueIndex" json:"time_entry_id"`

	Description string  `gorm:"type:text" json:"description"`
	QtyHours    float64 `gorm:"not null" json:"qty_hours"`
	RateCents   int64   `gorm:"not null" json:"rate_cents"`
	AmountCents int64   `gorm:"not null" json:"amount_cents"`
}

// InvoiceSetting holds per-workspace sender details and the default rate.
type InvoiceSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID       uint   `gorm:"uniqueIndex;not null" json:"workspace_id"`
	SenderName        string `gorm:"size:255" json:"sender_name"`
	SenderAddress     string `gorm:"type:text" json:"sender_address"`
	BillableRateCents int64  `gorm:"not null;default:0" json:"billable_rate_cents"`
}
