// Package notify dispatches fire-and-forget notifications (invite and
// invoice emails) over an in-process watermill bus.
package notify

import (
	"time"

	"github.com/diewo77/go-timesheets/pdf"
)

// Topics.
const (
	TopicInviteCreated = "invite.created"
	TopicInvoiceSend   = "invoice.send"
)

// AppName appears in email subjects.
const AppName = "Timesheets"

// InviteCreated is published when someone is invited to a workspace.
type InviteCreated struct {
	InviteID      uint      `json:"invite_id"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Token         string    `json:"token"`
	WorkspaceName string    `json:"workspace_name"`
	InviterName   string    `json:"inviter_name"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// InvoiceSend asks for an invoice to be emailed as a PDF attachment.
type InvoiceSend struct {
	WorkspaceID uint     `json:"workspace_id"`
	InvoiceID   uint     `json:"invoice_id"`
	Recipients  []string `json:"recipients"`
	CC          []string `json:"cc,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// InvoiceDocument is a fully loaded invoice ready to render.
type InvoiceDocument struct {
	Data     pdf.InvoiceData
	Filename string
}
