package services

import (
	"context"
	"errors"
	"testing"
	"time"

	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGenerator(w *world) *InvoiceGenerator {
	g := NewInvoiceGenerator(w.db)
	g.now = fixedNow
	return g
}

func march(w *world, rate int64) GenerateParams {
	return GenerateParams{ClientID: w.client.ID, PeriodStart: date(2024, 3, 1), PeriodEnd: date(2024, 3, 31), RateCents: rate}
}

func TestGenerate_LinesAndTotal(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	e1 := w.entry(t, w.member, &w.project, day, 5400, true)
	e2 := w.entry(t, w.owner, &w.project, day.Add(-time.Hour), 1200, true)

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, date(2024, 3, 15), inv.IssuedOn)
	assert.Equal(t, date(2024, 3, 1), inv.PeriodStart)
	assert.Equal(t, date(2024, 3, 31), inv.PeriodEnd)
	require.Len(t, inv.Lines, 2)

	// ordered by start
	assert.Equal(t, e2.ID, *inv.Lines[0].TimeEntryID)
	assert.Equal(t, e1.ID, *inv.Lines[1].TimeEntryID)
	assert.Equal(t, int64(1667), inv.Lines[0].AmountCents) // 1200s at $50/h = 1666.67
	assert.Equal(t, int64(7500), inv.Lines[1].AmountCents)
	assert.InDelta(t, 1.0/3, inv.Lines[0].QtyHours, 1e-9)
	assert.Equal(t, 1.5, inv.Lines[1].QtyHours)
	assert.Equal(t, "work 5400s", inv.Lines[1].Description)
	assert.Equal(t, int64(9167), inv.TotalCents)

	var stored models.Invoice
	require.NoError(t, w.db.Preload("Lines").First(&stored, inv.ID).Error)
	assert.Equal(t, stored.LinesTotal(), stored.TotalCents)
	assert.Equal(t, int64(9167), stored.TotalCents)
}

func TestGenerate_RoundsHalfUp(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	w.entry(t, w.member, &w.project, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 1200, true)

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 9000))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, int64(3000), inv.Lines[0].AmountCents)
}

func TestGenerate_Eligibility(t *testing.T) {
	d := setupDB(t)
	w := newWorld(t, d, "a", "UTC")
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	included := []models.TimeEntry{
		w.entry(t, w.member, &w.project, day, models.MinBillableSeconds, true),
		w.entry(t, w.member, &w.project, date(2024, 3, 1), 600, true),
		w.entry(t, w.member, &w.project, date(2024, 4, 1).Add(-time.Second), 600, true),
	}
	w.entry(t, w.member, &w.project, day, models.MinBillableSeconds-1, true) // too short
	w.entry(t, w.member, &w.project, day, 600, false)                       // not billable
	w.entry(t, w.member, &w.internal, day, 600, true)                       // project without client
	w.entry(t, w.member, nil, day, 600, true)                               // no project
	w.entry(t, w.member, &w.project, date(2024, 2, 29), 600, true)          // before period
	w.entry(t, w.member, &w.project, date(2024, 4, 1), 600, true)           // after period
	running := models.TimeEntry{WorkspaceID: w.ws.ID, UserID: w.member.ID, ProjectID: &w.project.ID, Billable: true, StartAt: day}
	require.NoError(t, d.Create(&running).Error)

	other := models.Client{WorkspaceID: w.ws.ID, Name: "Other"}
	require.NoError(t, d.Create(&other).Error)
	otherProject := models.Project{WorkspaceID: w.ws.ID, ClientID: &other.ID, Name: "Other site", Color: "#000000"}
	require.NoError(t, d.Create(&otherProject).Error)
	w.entry(t, w.member, &otherProject, day, 600, true) // other client

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 6000))
	require.NoError(t, err)
	require.NotNil(t, inv)

	var got []uint
	for _, l := range inv.Lines {
		got = append(got, *l.TimeEntryID)
	}
	assert.ElementsMatch(t, []uint{included[0].ID, included[1].ID, included[2].ID}, got)
}

func TestGenerate_BillsEachEntryOnce(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	w.entry(t, w.member, &w.project, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 3600, true)
	g := newGenerator(w)

	first, err := g.Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := g.Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, int64(1), countRows(t, w.db, &models.Invoice{}))

	// a new entry is billed on its own
	w.entry(t, w.member, &w.project, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), 1800, true)
	third, err := g.Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	require.NotNil(t, third)
	require.Len(t, third.Lines, 1)
	assert.Equal(t, int64(2500), third.TotalCents)
}

func TestGenerate_EmptySelectionPersistsNothing(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	w.entry(t, w.member, &w.project, time.Date(2024, 5, 4, 9, 0, 0, 0, time.UTC), 3600, true)

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	assert.Nil(t, inv)
	assert.Zero(t, countRows(t, w.db, &models.Invoice{}))
	assert.Zero(t, countRows(t, w.db, &models.InvoiceLine{}))
}

func TestGenerate_WorkspaceTimeZone(t *testing.T) {
	w := newWorld(t, setupDB(t), "ny", "America/New_York")
	// Feb 29 23:30 in New York
	before := w.entry(t, w.member, &w.project, time.Date(2024, 3, 1, 4, 30, 0, 0, time.UTC), 600, true)
	// Mar 1 00:30 in New York
	first := w.entry(t, w.member, &w.project, time.Date(2024, 3, 1, 5, 30, 0, 0, time.UTC), 600, true)
	// Mar 31 23:30 in New York (EDT)
	last := w.entry(t, w.member, &w.project, time.Date(2024, 4, 1, 3, 30, 0, 0, time.UTC), 600, true)

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 3600))
	require.NoError(t, err)
	require.NotNil(t, inv)

	var ids []uint
	for _, l := range inv.Lines {
		ids = append(ids, *l.TimeEntryID)
	}
	assert.Equal(t, []uint{first.ID, last.ID}, ids)
	assert.NotContains(t, ids, before.ID)
}

func TestGenerate_OnlyMyEntries(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	mine := w.entry(t, w.admin, &w.project, day, 3600, true)
	w.entry(t, w.member, &w.project, day, 3600, true)

	p := march(w, 1000)
	p.UserID = &w.admin.ID
	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, p)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, mine.ID, *inv.Lines[0].TimeEntryID)
}

func TestGenerate_WorkspaceIsolation(t *testing.T) {
	d := setupDB(t)
	a := newWorld(t, d, "a", "UTC")
	b := newWorld(t, d, "b", "UTC")
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	own := a.entry(t, a.member, &a.project, day, 3600, true)
	// rows of workspace b pointing at workspace a's project and client ids
	b.entry(t, b.member, &a.project, day, 3600, true)
	b.entry(t, b.member, &b.project, day, 7200, true)

	inv, err := newGenerator(a).Generate(context.Background(), a.adminScope, march(a, 1000))
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, own.ID, *inv.Lines[0].TimeEntryID)
	assert.Equal(t, int64(1000), inv.TotalCents)

	// another workspace's client is invisible
	p := march(a, 1000)
	p.ClientID = b.client.ID
	_, err = newGenerator(a).Generate(context.Background(), a.adminScope, p)
	assert.True(t, ierr.IsNotFound(err))
}

func TestGenerate_Validation(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	tests := []struct {
		name   string
		mutate func(*GenerateParams)
		field  string
	}{
		{"end before start", func(p *GenerateParams) { p.PeriodEnd = date(2024, 2, 1) }, "period_end"},
		{"missing start", func(p *GenerateParams) { p.PeriodStart = time.Time{} }, "period_start"},
		{"negative rate", func(p *GenerateParams) { p.RateCents = -1 }, "rate_cents"},
		{"missing client", func(p *GenerateParams) { p.ClientID = 0 }, "client_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := march(w, 5000)
			tt.mutate(&p)
			_, err := newGenerator(w).Generate(context.Background(), w.adminScope, p)
			require.Error(t, err)
			assert.Equal(t, ierr.ErrCodeValidation, ierr.Code(err))
			assert.Contains(t, ierr.Details(err), tt.field)
		})
	}

	// a single-day period is valid
	p := march(w, 5000)
	p.PeriodEnd = p.PeriodStart
	_, err := newGenerator(w).Generate(context.Background(), w.adminScope, p)
	assert.NoError(t, err)
}

func TestGenerate_RollsBackWhenLinesFail(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	w.entry(t, w.member, &w.project, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 3600, true)

	const failLines = "test:fail_invoice_lines"
	require.NoError(t, w.db.Callback().Create().Before("gorm:create").Register(failLines, func(tx *gorm.DB) {
		if tx.Statement.Table == "invoice_lines" {
			_ = tx.AddError(errors.New("boom"))
		}
	}))

	inv, err := newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 5000))
	assert.Nil(t, inv)
	require.Error(t, err)
	assert.Equal(t, ierr.ErrCodeDatabase, ierr.Code(err))
	assert.Equal(t, int64(0), countRows(t, w.db, &models.Invoice{}))
	assert.Equal(t, int64(0), countRows(t, w.db, &models.InvoiceLine{}))

	// the entry is still unbilled
	require.NoError(t, w.db.Callback().Create().Remove(failLines))
	inv, err = newGenerator(w).Generate(context.Background(), w.adminScope, march(w, 5000))
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Len(t, inv.Lines, 1)
	assert.Equal(t, int64(5000), inv.TotalCents)
}
