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
)

type WorkspaceParams struct {
	Name     *string
	TimeZone *string
}

// WorkspaceService manages workspaces and their members.
type WorkspaceService struct {
	db    *gorm.DB
	auth  Authorizer
	roles RoleCache
}

func NewWorkspaceService(db *gorm.DB, auth Authorizer, roles RoleCache) *WorkspaceService {
	return &WorkspaceService{db: db, auth: auth, roles: roles}
}

// Create makes userID the owner of a new workspace and switches them to it.
func (s *WorkspaceService) Create(ctx context.Context, userID uint, p WorkspaceParams) (*models.Workspace, error) {
	var ws *models.Workspace
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ws, err = createWorkspace(tx, userID, p)
		return err
	})
	if err != nil {
		return nil, passThrough(err, "workspace")
	}
	return ws, nil
}

func createWorkspace(tx *gorm.DB, userID uint, p WorkspaceParams) (*models.Workspace, error) {
	ws := &models.Workspace{OwnerID: userID, TimeZone: "UTC"}
	if p.Name == nil {
		p.Name = new(string)
	}
	if err := applyWorkspace(ws, p); err != nil {
		return nil, err
	}
	if err := tx.Create(ws).Error; err != nil {
		return nil, err
	}
	m := &models.Membership{WorkspaceID: ws.ID, UserID: userID, Role: models.RoleOwner}
	if err := tx.Create(m).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update("last_used_workspace_id", ws.ID).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

func applyWorkspace(ws *models.Workspace, p WorkspaceParams) error {
	v := validation.Violations{}
	if p.Name != nil {
		ws.Name = strings.TrimSpace(*p.Name)
		validation.Required("name", ws.Name, v)
	}
	if p.TimeZone != nil {
		tz := strings.TrimSpace(*p.TimeZone)
		if tz == "" {
			tz = "UTC"
		}
		if _, err := time.LoadLocation(tz); err != nil {
			v.Add("time_zone", "invalid_time_zone")
		}
		ws.TimeZone = tz
	}
	if !v.Empty() {
		return validationError(v)
	}
	return nil
}

// ListForUser returns the workspaces userID belongs to.
func (s *WorkspaceService) ListForUser(ctx context.Context, userID uint) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.workspace_id = workspaces.id").
		Where("memberships.user_id = ?", userID).
		Order("workspaces.name").
		Find(&workspaces).Error
	return workspaces, dbError(err, "workspaces")
}

func (s *WorkspaceService) Get(ctx context.Context, sc tenant.Scope) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.db.WithContext(ctx).First(&ws, sc.WorkspaceID).Error; err != nil {
		return nil, dbError(err, "workspace")
	}
	return &ws, nil
}

func (s *WorkspaceService) Update(ctx context.Context, sc tenant.Scope, p WorkspaceParams) (*models.Workspace, error) {
	ws, err := s.Get(ctx, sc)
	if err != nil {
		return nil, err
	}
	if err := applyWorkspace(ws, p); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(ws).Select("name", "time_zone").Updates(ws).Error; err != nil {
		return nil, dbError(err, "workspace")
	}
	return ws, nil
}

// Delete removes the workspace and everything it owns.
func (s *WorkspaceService) Delete(ctx context.Context, sc tenant.Scope) error {
	var members []models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ws models.Workspace
		if err := tx.First(&ws, sc.WorkspaceID).Error; err != nil {
			return dbError(err, "workspace")
		}
		if err := tx.Where("workspace_id = ?", ws.ID).Find(&members).Error; err != nil {
			return err
		}
		entries := tx.Model(&models.TimeEntry{}).Select("id").Where("workspace_id = ?", ws.ID)
		invoices := tx.Model(&models.Invoice{}).Select("id").Where("workspace_id = ?", ws.ID)
		byWorkspace := func(model any) func() error {
			return func() error { return tx.Where("workspace_id = ?", ws.ID).Delete(model).Error }
		}
		steps := []func() error{
			func() error {
				return tx.Exec("DELETE FROM time_entry_tags WHERE time_entry_id IN (?)", entries).Error
			},
			func() error {
				return tx.Where("invoice_id IN (?)", invoices).Delete(&models.InvoiceLine{}).Error
			},
			byWorkspace(&models.Invoice{}),
			byWorkspace(&models.TimeEntry{}),
			byWorkspace(&models.Tag{}),
			byWorkspace(&models.Project{}),
			byWorkspace(&models.Client{}),
			byWorkspace(&models.InvoiceSetting{}),
			byWorkspace(&models.Invite{}),
			byWorkspace(&models.Membership{}),
			func() error {
				return tx.Model(&models.User{}).
					Where("last_used_workspace_id = ?", ws.ID).
					Update("last_used_workspace_id", nil).Error
			},
			func() error { return tx.Delete(&ws).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "workspace")
	}
	for _, m := range members {
		s.roles.InvalidateMember(m.WorkspaceID, m.UserID)
	}
	return nil
}

// ListMembers returns memberships with their users.
func (s *WorkspaceService) ListMembers(ctx context.Context, sc tenant.Scope) ([]models.Membership, error) {
	var members []models.Membership
	err := s.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", sc.WorkspaceID).
		Order("id").Find(&members).Error
	return members, dbError(err, "members")
}

// ChangeRole sets a member's role to admin or member. Only the owner
// holds membership:update; the owner's role never changes.
func (s *WorkspaceService) ChangeRole(ctx context.Context, sc tenant.Scope, membershipID uint, role models.Role) (*models.Membership, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, validationError(validation.Violations{"role": "invalid_value"})
	}
	m, err := s.member(ctx, sc, membershipID)
	if err != nil {
		return nil, err
	}
	if m.Role == models.RoleOwner {
		return nil, conflict("The owner's role cannot be changed")
	}
	if err := s.auth.Authorize(ctx, sc, gate.ActionUpdate, policy.ResourceMembership, m); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(m).Update("role", role).Error; err != nil {
		return nil, dbError(err, "member")
	}
	m.Role = role
	s.roles.InvalidateMember(m.WorkspaceID, m.UserID)
	return m, nil
}

// RemoveMember deletes a membership. Members may remove themselves;
// removing others needs membership:manage. The owner cannot be removed.
func (s *WorkspaceService) RemoveMember(ctx context.Context, sc tenant.Scope, membershipID uint) error {
	m, err := s.member(ctx, sc, membershipID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleOwner {
		return conflict("The workspace owner cannot be removed")
	}
	if err := s.auth.Authorize(ctx, sc, gate.ActionDelete, policy.ResourceMembership, m); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(m).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ? AND last_used_workspace_id = ?", m.UserID, m.WorkspaceID).
			Update("last_used_workspace_id", nil).Error
	})
	if err != nil {
		return dbError(err, "member")
	}
	s.roles.InvalidateMember(m.WorkspaceID, m.UserID)
	return nil
}

func (s *WorkspaceService) member(ctx context.Context, sc tenant.Scope, id uint) (*models.Membership, error) {
	var m models.Membership
	if err := s.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", sc.WorkspaceID).First(&m, id).Error; err != nil {
		return nil, dbError(err, "member")
	}
	return &m, nil
}
