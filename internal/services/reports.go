package services

import (
	"context"
	"sort"
	"time"

	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	NoProject = "No Project"
	NoClient  = "No Client"
)

// ReportParams selects the entries to summarize. Missing dates default to
// the current Monday to Sunday week. Mine restricts to the caller.
type ReportParams struct {
	From *time.Time
	To   *time.Time
	Mine bool
}

type DailyRow struct {
	Date            string `json:"date"`
	TotalSeconds    int64  `json:"total_seconds"`
	BillableSeconds int64  `json:"billable_seconds"`
}

type GroupRow struct {
	ID              *uint  `json:"id"`
	Name            string `json:"name"`
	TotalSeconds    int64  `json:"total_seconds"`
	BillableSeconds int64  `json:"billable_seconds"`
}

type Report struct {
	From               string     `json:"from"`
	To                 string     `json:"to"`
	TotalSeconds       int64      `json:"total_seconds"`
	BillableSeconds    int64      `json:"billable_seconds"`
	NonBillableSeconds int64      `json:"non_billable_seconds"`
	Daily              []DailyRow `json:"daily"`
	ByProject          []GroupRow `json:"by_project"`
	ByClient           []GroupRow `json:"by_client"`
}

// ReportService aggregates completed time entries.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db, now: time.Now}
}

func (s *ReportService) Summarize(ctx context.Context, sc tenant.Scope, p ReportParams) (*Report, error) {
	from, to := s.period(sc, p)
	if to.Before(from) {
		return nil, validationError(validation.Violations{"to": "before_from"})
	}
	start, end := sc.DayRange(from, to)

	q := s.db.WithContext(ctx).Preload("Project.Client").
		Where("workspace_id = ? AND end_at IS NOT NULL AND start_at >= ? AND start_at < ?", sc.WorkspaceID, start, end)
	if p.Mine {
		q = q.Where("user_id = ?", sc.UserID)
	}
	var entries []models.TimeEntry
	if err := q.Order("start_at").Find(&entries).Error; err != nil {
		return nil, dbError(err, "time entries")
	}

	r := &Report{
		From:      from.Format(validation.DateLayout),
		To:        to.Format(validation.DateLayout),
		Daily:     []DailyRow{},
		ByProject: []GroupRow{},
		ByClient:  []GroupRow{},
	}
	billable := func(e models.TimeEntry) int64 {
		if e.Billable {
			return e.DurationSeconds
		}
		return 0
	}
	r.TotalSeconds = lo.SumBy(entries, func(e models.TimeEntry) int64 { return e.DurationSeconds })
	r.BillableSeconds = lo.SumBy(entries, billable)
	r.NonBillableSeconds = r.TotalSeconds - r.BillableSeconds

	days := lo.GroupBy(entries, func(e models.TimeEntry) string {
		return e.StartAt.In(sc.Loc()).Format(validation.DateLayout)
	})
	for day, es := range days {
		r.Daily = append(r.Daily, DailyRow{
			Date:            day,
			TotalSeconds:    lo.SumBy(es, func(e models.TimeEntry) int64 { return e.DurationSeconds }),
			BillableSeconds: lo.SumBy(es, billable),
		})
	}
	sort.Slice(r.Daily, func(i, j int) bool { return r.Daily[i].Date < r.Daily[j].Date })

	r.ByProject = groupRows(entries, billable, func(e models.TimeEntry) (*uint, string) {
		if e.Project == nil {
			return nil, NoProject
		}
		return e.ProjectID, e.Project.Name
	})
	r.ByClient = groupRows(entries, billable, func(e models.TimeEntry) (*uint, string) {
		if e.Project == nil || e.Project.Client == nil {
			return nil, NoClient
		}
		return e.Project.ClientID, e.Project.Client.Name
	})
	return r, nil
}

// period resolves the requested dates in the workspace zone.
func (s *ReportService) period(sc tenant.Scope, p ReportParams) (time.Time, time.Time) {
	today := s.now().In(sc.Loc())
	// Monday = 0
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	from, to := calendarDate(monday), calendarDate(monday.AddDate(0, 0, 6))
	if p.From != nil {
		from = calendarDate(*p.From)
	}
	if p.To != nil {
		to = calendarDate(*p.To)
	}
	return from, to
}

// groupRows sums entries per key, largest total first, ties by name.
func groupRows(entries []models.TimeEntry, billable func(models.TimeEntry) int64, key func(models.TimeEntry) (*uint, string)) []GroupRow {
	index := map[uint]int{}
	none := -1
	rows := []GroupRow{}
	for _, e := range entries {
		id, name := key(e)
		i, ok := none, none >= 0
		if id != nil {
			i, ok = index[*id]
		}
		if !ok {
			rows = append(rows, GroupRow{ID: id, Name: name})
			i = len(rows) - 1
			if id != nil {
				index[*id] = i
			} else {
				none = i
			}
		}
		rows[i].TotalSeconds += e.DurationSeconds
		rows[i].BillableSeconds += billable(e)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalSeconds != rows[j].TotalSeconds {
			return rows[i].TotalSeconds > rows[j].TotalSeconds
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
