package services

import (
	"context"
	"testing"
	"time"

	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReports(w *world) *ReportService {
	s := NewReportService(w.db)
	s.now = fixedNow
	return s
}

func TestReport_DefaultsToCurrentWeek(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	ctx := context.Background()
	monday := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	w.entry(t, w.member, &w.project, monday, 3600, true)
	w.entry(t, w.member, &w.internal, monday.Add(2*time.Hour), 1800, false)
	w.entry(t, w.owner, nil, monday.AddDate(0, 0, 2), 600, false)
	w.entry(t, w.member, &w.project, monday.AddDate(0, 0, -1), 7200, true) // previous week
	_, err := newTimeEntries(w).Start(ctx, w.memberScope, TimeEntryParams{ProjectID: &w.project.ID})
	require.NoError(t, err)

	r, err := newReports(w).Summarize(ctx, w.memberScope, ReportParams{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", r.From)
	assert.Equal(t, "2024-03-17", r.To)
	assert.Equal(t, int64(6000), r.TotalSeconds)
	assert.Equal(t, int64(3600), r.BillableSeconds)
	assert.Equal(t, int64(2400), r.NonBillableSeconds)

	assert.Equal(t, []DailyRow{
		{Date: "2024-03-11", TotalSeconds: 5400, BillableSeconds: 3600},
		{Date: "2024-03-13", TotalSeconds: 600},
	}, r.Daily)

	require.Len(t, r.ByProject, 3)
	assert.Equal(t, "Website", r.ByProject[0].Name)
	assert.Equal(t, "Internal", r.ByProject[1].Name)
	assert.Equal(t, NoProject, r.ByProject[2].Name)
	assert.Nil(t, r.ByProject[2].ID)

	require.Len(t, r.ByClient, 2)
	assert.Equal(t, "Acme a", r.ByClient[0].Name)
	assert.Equal(t, int64(3600), r.ByClient[0].TotalSeconds)
	assert.Equal(t, NoClient, r.ByClient[1].Name)
	assert.Equal(t, int64(2400), r.ByClient[1].TotalSeconds)
}

func TestReport_MineAndRange(t *testing.T) {
	w := newWorld(t, setupDB(t), "a", "UTC")
	ctx := context.Background()
	w.entry(t, w.member, &w.project, time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC), 3600, true)
	w.entry(t, w.owner, &w.project, time.Date(2024, 2, 6, 9, 0, 0, 0, time.UTC), 1200, true)

	from, to := date(2024, 2, 1), date(2024, 2, 29)
	r, err := newReports(w).Summarize(ctx, w.memberScope, ReportParams{From: &from, To: &to, Mine: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), r.TotalSeconds)

	r, err = newReports(w).Summarize(ctx, w.memberScope, ReportParams{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(4800), r.TotalSeconds)

	_, err = newReports(w).Summarize(ctx, w.memberScope, ReportParams{From: &to, To: &from})
	assert.Equal(t, "before_from", ierr.Details(err)["to"])
}

func TestReport_DaysFollowWorkspaceZone(t *testing.T) {
	w := newWorld(t, setupDB(t), "tokyo", "Asia/Tokyo")
	// 2024-03-11 20:00 UTC is March 12 in Tokyo
	w.entry(t, w.member, &w.project, time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC), 900, true)

	r, err := newReports(w).Summarize(context.Background(), w.memberScope, ReportParams{})
	require.NoError(t, err)
	require.Len(t, r.Daily, 1)
	assert.Equal(t, "2024-03-12", r.Daily[0].Date)
}
