package models

import (
	"testing"
	"time"
)

func TestTimeEntry_Stop(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := &TimeEntry{StartAt: start}

	if !e.Running() {
		t.Fatal("new entry should be running")
	}
	now := start.Add(90*time.Minute + 1500*time.Millisecond)
	if !e.Stop(now) {
		t.Fatal("Stop() on running entry = false, want true")
	}
	if e.EndAt == nil || !e.EndAt.Equal(now) {
		t.Errorf("EndAt = %v, want %v", e.EndAt, now)
	}
	if e.DurationSeconds != 5401 {
		t.Errorf("DurationSeconds = %d, want 5401 (truncated)", e.DurationSeconds)
	}

	if e.Stop(now.Add(time.Hour)) {
		t.Error("Stop() on completed entry = true, want false")
	}
	if e.DurationSeconds != 5401 || !e.EndAt.Equal(now) {
		t.Error("second Stop() must not change the entry")
	}
}

func TestTimeEntry_FormattedDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		want    string
	}{
		{"seconds only", 42, "0:42"},
		{"minutes", 20 * 60, "20:00"},
		{"hours", 3600 + 5*60 + 7, "1:05:07"},
		{"many hours", 12*3600 + 59, "12:00:59"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := time.Now()
			e := &TimeEntry{EndAt: &end, DurationSeconds: tt.seconds}
			if got := e.FormattedDuration(); got != tt.want {
				t.Errorf("FormattedDuration() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := (&TimeEntry{}).FormattedDuration(); got != "" {
		t.Errorf("running entry FormattedDuration() = %q, want empty", got)
	}
}

func TestTimeEntry_RecomputeDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)
	e := &TimeEntry{StartAt: start, EndAt: &end}
	e.RecomputeDuration()
	if e.DurationSeconds != 2700 {
		t.Errorf("DurationSeconds = %d, want 2700", e.DurationSeconds)
	}
	if e.Hours() != 0.75 {
		t.Errorf("Hours() = %f, want 0.75", e.Hours())
	}
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to InvoiceStatus
		want     bool
	}{
		{InvoiceStatusDraft, InvoiceStatusIssued, true},
		{InvoiceStatusIssued, InvoiceStatusPaid, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusPaid, InvoiceStatusDraft, false},
		{InvoiceStatusIssued, InvoiceStatusDraft, false},
		{InvoiceStatusDraft, InvoiceStatus("sent"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvoice_NumberAndTotals(t *testing.T) {
	inv := &Invoice{ID: 42, TotalCents: 10500, Lines: []InvoiceLine{{AmountCents: 7500}, {AmountCents: 3000}}}
	if got := inv.Number(); got != "0000002A-0042" {
		t.Errorf("Number() = %q", got)
	}
	if got := inv.FormattedTotal(); got != "$105.00" {
		t.Errorf("FormattedTotal() = %q", got)
	}
	if inv.LinesTotal() != inv.TotalCents {
		t.Errorf("LinesTotal() = %d, want %d", inv.LinesTotal(), inv.TotalCents)
	}
}

func TestRole_AtLeast(t *testing.T) {
	if !RoleOwner.AtLeast(RoleAdmin) || !RoleAdmin.AtLeast(RoleMember) || !RoleMember.AtLeast(RoleMember) {
		t.Error("expected owner > admin > member")
	}
	if RoleMember.AtLeast(RoleAdmin) {
		t.Error("member must not satisfy admin")
	}
	if Role("guest").Valid() {
		t.Error("unknown role must be invalid")
	}
}

func TestProject_DisplayNameAndColor(t *testing.T) {
	p := &Project{Name: "Website"}
	if p.DisplayName() != "Website" {
		t.Errorf("DisplayName() = %q", p.DisplayName())
	}
	p.Client = &Client{Name: "Acme"}
	if p.DisplayName() != "Acme: Website" {
		t.Errorf("DisplayName() = %q", p.DisplayName())
	}

	c := DefaultColor("Website")
	if !ValidColor(c) || c != DefaultColor("Website") {
		t.Errorf("DefaultColor() = %q, want a stable palette color", c)
	}
	if ValidColor("red") || ValidColor("#12345") {
		t.Error("ValidColor accepted an invalid color")
	}
}

func TestWorkspace_Location(t *testing.T) {
	if (&Workspace{}).Location() != time.UTC {
		t.Error("empty zone should be UTC")
	}
	if (&Workspace{TimeZone: "Not/AZone"}).Location() != time.UTC {
		t.Error("invalid zone should fall back to UTC")
	}
	if got := (&Workspace{TimeZone: "Europe/Paris"}).Location().String(); got != "Europe/Paris" {
		t.Errorf("Location() = %q", got)
	}
}

func TestInvite_Expired(t *testing.T) {
	now := time.Now()
	inv := &Invite{Status: InviteStatusPending, ExpiresAt: now.Add(InviteTTL)}
	if inv.Expired(now) || !inv.Pending() {
		t.Error("fresh invite should be pending and not expired")
	}
	if !inv.Expired(now.Add(InviteTTL)) {
		t.Error("invite should expire at ExpiresAt")
	}
}
