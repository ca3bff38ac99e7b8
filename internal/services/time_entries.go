package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-timesheets/gate"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/policy"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimeEntryParams describes a new entry. A nil Billable takes the
// project's default. A nil EndAt creates a running entry.
type TimeEntryParams struct {
	Description string
	ProjectID   *uint
	TagIDs      []uint
	Billable    *bool
	StartAt     time.Time
	EndAt       *time.Time
}

// TimeEntryUpdate changes only the non-nil fields. ProjectID pointing to 0
// clears the project; a non-nil TagIDs replaces the tags.
type TimeEntryUpdate struct {
	Description *string
	ProjectID   *uint
	TagIDs      *[]uint
	Billable    *bool
	StartAt     *time.Time
	EndAt       *time.Time
}

// TimeEntryFilter narrows List. From and To are calendar dates in the
// workspace zone.
type TimeEntryFilter struct {
	From      *time.Time
	To        *time.Time
	ProjectID *uint
	Running   *bool
	Page      Page
}

// TimeEntryService manages the caller's own time entries.
type TimeEntryService struct {
	db   *gorm.DB
	auth Authorizer
	now  func() time.Time
}

func NewTimeEntryService(db *gorm.DB, auth Authorizer) *TimeEntryService {
	return &TimeEntryService{db: db, auth: auth, now: time.Now}
}

// Start begins a running timer now.
func (s *TimeEntryService) Start(ctx context.Context, sc tenant.Scope, p TimeEntryParams) (*models.TimeEntry, error) {
	p.StartAt = s.now()
	p.EndAt = nil
	return s.Create(ctx, sc, p)
}

// Create stores a running entry, or a completed one when EndAt is set.
func (s *TimeEntryService) Create(ctx context.Context, sc tenant.Scope, p TimeEntryParams) (*models.TimeEntry, error) {
	if err := s.auth.Authorize(ctx, sc, gate.ActionCreate, policy.ResourceTimeEntry, nil); err != nil {
		return nil, err
	}
	entry := &models.TimeEntry{
		WorkspaceID: sc.WorkspaceID,
		UserID:      sc.UserID,
		Description: strings.TrimSpace(p.Description),
		StartAt:     p.StartAt.UTC(),
	}
	if p.EndAt != nil {
		end := p.EndAt.UTC()
		entry.EndAt = &end
	}
	if v := validateEntry(entry, p.StartAt.IsZero()); !v.Empty() {
		return nil, validationError(v)
	}
	entry.RecomputeDuration()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := projectInScope(tx, sc, p.ProjectID)
		if err != nil {
			return err
		}
		if project != nil {
			entry.ProjectID = &project.ID
			entry.Billable = project.BillableDefault
		}
		if p.Billable != nil {
			entry.Billable = *p.Billable
		}
		tags, err := tagsInScope(tx, sc, p.TagIDs)
		if err != nil {
			return err
		}
		entry.Tags = tags
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, passThrough(err, "time entry")
	}
	return s.Get(ctx, sc, entry.ID)
}

// Stop completes a running entry at now. Stopping a completed entry is a
// conflict and changes nothing. The stopped entry must be valid as a
// completed one: it needs a description and cannot end before it started.
func (s *TimeEntryService) Stop(ctx context.Context, sc tenant.Scope, id uint) (*models.TimeEntry, error) {
	entry, err := s.load(ctx, s.db, sc, id, gate.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if !entry.Stop(s.now()) {
		return nil, conflict("Time entry is already stopped")
	}
	if v := validateEntry(entry, false); !v.Empty() {
		return nil, validationError(v)
	}
	res := s.db.WithContext(ctx).Model(entry).
		Where("end_at IS NULL").
		Updates(map[string]any{"end_at": entry.EndAt, "duration_seconds": entry.DurationSeconds})
	if res.Error != nil {
		return nil, dbError(res.Error, "time entry")
	}
	if res.RowsAffected == 0 {
		// stopped by a concurrent request
		return nil, conflict("Time entry is already stopped")
	}
	return entry, nil
}

// Update edits an entry. Changing start or end recomputes the duration.
func (s *TimeEntryService) Update(ctx context.Context, sc tenant.Scope, id uint, p TimeEntryUpdate) (*models.TimeEntry, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.load(ctx, tx, sc, id, gate.ActionUpdate)
		if err != nil {
			return err
		}
		if p.Description != nil {
			entry.Description = strings.TrimSpace(*p.Description)
		}
		if p.Billable != nil {
			entry.Billable = *p.Billable
		}
		if p.StartAt != nil {
			entry.StartAt = p.StartAt.UTC()
		}
		if p.EndAt != nil {
			end := p.EndAt.UTC()
			entry.EndAt = &end
		}
		if v := validateEntry(entry, p.StartAt != nil && p.StartAt.IsZero()); !v.Empty() {
			return validationError(v)
		}
		entry.RecomputeDuration()

		if p.ProjectID != nil {
			entry.Project = nil
			entry.ProjectID = nil
			if *p.ProjectID != 0 {
				project, err := projectInScope(tx, sc, p.ProjectID)
				if err != nil {
					return err
				}
				entry.ProjectID = &project.ID
			}
		}
		if p.TagIDs != nil {
			tags, err := tagsInScope(tx, sc, *p.TagIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(entry).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}
		return tx.Model(entry).
			Select("description", "billable", "start_at", "end_at", "duration_seconds", "project_id").
			Omit(clause.Associations).
			Updates(entry).Error
	})
	if err != nil {
		return nil, passThrough(err, "time entry")
	}
	return s.Get(ctx, sc, id)
}

// Delete removes an entry for good. Invoice lines that billed it keep
// their amounts and lose the reference.
func (s *TimeEntryService) Delete(ctx context.Context, sc tenant.Scope, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.load(ctx, tx, sc, id, gate.ActionDelete)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.InvoiceLine{}).
			Where("time_entry_id = ?", entry.ID).
			Update("time_entry_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(entry).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(entry).Error
	})
	return passThrough(err, "time entry")
}

// Get returns one of the caller's entries with project, client and tags.
func (s *TimeEntryService) Get(ctx context.Context, sc tenant.Scope, id uint) (*models.TimeEntry, error) {
	return s.load(ctx, s.db, sc, id, gate.ActionView)
}

// List returns the caller's entries, newest first.
func (s *TimeEntryService) List(ctx context.Context, sc tenant.Scope, f TimeEntryFilter) ([]models.TimeEntry, error) {
	if err := s.auth.Authorize(ctx, sc, gate.ActionList, policy.ResourceTimeEntry, nil); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).
		Preload("Project.Client").Preload("Tags").
		Where("workspace_id = ? AND user_id = ?", sc.WorkspaceID, sc.UserID)
	if f.From != nil || f.To != nil {
		from, to := dateBounds(sc, f.From, f.To)
		if !from.IsZero() {
			q = q.Where("start_at >= ?", from)
		}
		if !to.IsZero() {
			q = q.Where("start_at < ?", to)
		}
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.Running != nil {
		if *f.Running {
			q = q.Where("end_at IS NULL")
		} else {
			q = q.Where("end_at IS NOT NULL")
		}
	}
	var entries []models.TimeEntry
	if err := f.Page.apply(q).Order("start_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, dbError(err, "time entries")
	}
	return entries, nil
}

// Running returns the caller's running entries, newest first.
func (s *TimeEntryService) Running(ctx context.Context, sc tenant.Scope) ([]models.TimeEntry, error) {
	running := true
	return s.List(ctx, sc, TimeEntryFilter{Running: &running})
}

func (s *TimeEntryService) load(ctx context.Context, db *gorm.DB, sc tenant.Scope, id uint, action gate.Action) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := db.WithContext(ctx).
		Preload("Project.Client").Preload("Tags").
		Where("workspace_id = ?", sc.WorkspaceID).
		First(&entry, id).Error
	if err != nil {
		return nil, dbError(err, "time entry")
	}
	if err := s.auth.Authorize(ctx, sc, action, policy.ResourceTimeEntry, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func validateEntry(e *models.TimeEntry, missingStart bool) validation.Violations {
	v := validation.Violations{}
	if missingStart || e.StartAt.IsZero() {
		v.Add("start_at", "required")
	}
	if e.EndAt != nil {
		validation.Required("description", e.Description, v)
		if e.EndAt.Before(e.StartAt) {
			v.Add("end_at", "before_start_at")
		}
	}
	return v
}

// projectInScope loads a project of the workspace; nil id means none.
func projectInScope(tx *gorm.DB, sc tenant.Scope, id *uint) (*models.Project, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	var p models.Project
	if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&p, *id).Error; err != nil {
		return nil, dbError(err, "project")
	}
	return &p, nil
}

// tagsInScope keeps only the ids that are tags of the workspace; others
// are ignored.
func tagsInScope(tx *gorm.DB, sc tenant.Scope, ids []uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	if len(ids) == 0 {
		return tags, nil
	}
	err := tx.Where("workspace_id = ? AND id IN ?", sc.WorkspaceID, ids).Order("name").Find(&tags).Error
	return tags, err
}

// dateBounds turns optional calendar dates into a UTC half-open range.
// A zero bound is open.
func dateBounds(sc tenant.Scope, from, to *time.Time) (time.Time, time.Time) {
	var start, end time.Time
	if from != nil {
		start, _ = sc.DayRange(*from, *from)
	}
	if to != nil {
		_, end = sc.DayRange(*to, *to)
	}
	return start, end
}
