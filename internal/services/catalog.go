package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"gorm.io/gorm"
)

type ClientParams struct {
	Name           string `json:"name" validate:"required,max=255"`
	BillingAddress string `json:"billing_address"`
}

// ProjectParams creates or updates a project. On update, nil fields are
// left alone and ClientID pointing to 0 detaches the client.
type ProjectParams struct {
	Name            *string
	ClientID        *uint
	Color           *string
	BillableDefault *bool
}

// CatalogService manages clients, projects and tags.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Clients

func (s *CatalogService) ListClients(ctx context.Context, sc tenant.Scope) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).Where("workspace_id = ?", sc.WorkspaceID).Order("name").Find(&clients).Error
	return clients, dbError(err, "clients")
}

func (s *CatalogService) GetClient(ctx context.Context, sc tenant.Scope, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", sc.WorkspaceID).First(&c, id).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return &c, nil
}

func (s *CatalogService) CreateClient(ctx context.Context, sc tenant.Scope, p ClientParams) (*models.Client, error) {
	p.Name = strings.TrimSpace(p.Name)
	if v := validation.Struct(p); !v.Empty() {
		return nil, validationError(v)
	}
	c := &models.Client{WorkspaceID: sc.WorkspaceID, Name: p.Name, BillingAddress: strings.TrimSpace(p.BillingAddress)}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return c, nil
}

func (s *CatalogService) UpdateClient(ctx context.Context, sc tenant.Scope, id uint, p ClientParams) (*models.Client, error) {
	p.Name = strings.TrimSpace(p.Name)
	if v := validation.Struct(p); !v.Empty() {
		return nil, validationError(v)
	}
	c, err := s.GetClient(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	c.Name = p.Name
	c.BillingAddress = strings.TrimSpace(p.BillingAddress)
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, dbError(err, "client")
	}
	return c, nil
}

// DeleteClient detaches the client's projects. A client that has been
// invoiced cannot be deleted.
func (s *CatalogService) DeleteClient(ctx context.Context, sc tenant.Scope, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Client
		if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&c, id).Error; err != nil {
			return dbError(err, "client")
		}
		var invoices int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", c.ID).Count(&invoices).Error; err != nil {
			return err
		}
		if invoices > 0 {
			return conflict("Client has invoices and cannot be deleted")
		}
		if err := tx.Model(&models.Project{}).
			Where("workspace_id = ? AND client_id = ?", sc.WorkspaceID, c.ID).
			Update("client_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	return passThrough(err, "client")
}

// Projects

func (s *CatalogService) ListProjects(ctx context.Context, sc tenant.Scope) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).Preload("Client").
		Where("workspace_id = ?", sc.WorkspaceID).Order("name").Find(&projects).Error
	return projects, dbError(err, "projects")
}

func (s *CatalogService) GetProject(ctx context.Context, sc tenant.Scope, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Preload("Client").
		Where("workspace_id = ?", sc.WorkspaceID).First(&p, id).Error; err != nil {
		return nil, dbError(err, "project")
	}
	return &p, nil
}

func (s *CatalogService) CreateProject(ctx context.Context, sc tenant.Scope, p ProjectParams) (*models.Project, error) {
	project := &models.Project{WorkspaceID: sc.WorkspaceID}
	if p.Name == nil {
		p.Name = new(string)
	}
	if err := s.applyProject(ctx, sc, project, p); err != nil {
		return nil, err
	}
	if project.Color == "" {
		project.Color = models.DefaultColor(project.Name)
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, dbError(err, "project")
	}
	return s.GetProject(ctx, sc, project.ID)
}

func (s *CatalogService) UpdateProject(ctx context.Context, sc tenant.Scope, id uint, p ProjectParams) (*models.Project, error) {
	project, err := s.GetProject(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProject(ctx, sc, project, p); err != nil {
		return nil, err
	}
	project.Client = nil
	if err := s.db.WithContext(ctx).Model(project).
		Select("name", "client_id", "color", "billable_default").
		Updates(project).Error; err != nil {
		return nil, dbError(err, "project")
	}
	return s.GetProject(ctx, sc, id)
}

func (s *CatalogService) applyProject(ctx context.Context, sc tenant.Scope, project *models.Project, p ProjectParams) error {
	v := validation.Violations{}
	if p.Name != nil {
		project.Name = strings.TrimSpace(*p.Name)
		validation.Required("name", project.Name, v)
	}
	if p.Color != nil {
		project.Color = strings.TrimSpace(*p.Color)
		switch {
		case project.Color == "":
			project.Color = models.DefaultColor(project.Name)
		case !models.ValidColor(project.Color):
			v.Add("color", "invalid_color")
		}
	}
	if !v.Empty() {
		return validationError(v)
	}
	if p.BillableDefault != nil {
		project.BillableDefault = *p.BillableDefault
	}
	if p.ClientID != nil {
		project.ClientID = nil
		if *p.ClientID != 0 {
			c, err := s.GetClient(ctx, sc, *p.ClientID)
			if err != nil {
				return err
			}
			project.ClientID = &c.ID
		}
	}
	return nil
}

// DeleteProject keeps the project's time entries, without a project.
func (s *CatalogService) DeleteProject(ctx context.Context, sc tenant.Scope, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&p, id).Error; err != nil {
			return dbError(err, "project")
		}
		if err := tx.Model(&models.TimeEntry{}).
			Where("workspace_id = ? AND project_id = ?", sc.WorkspaceID, p.ID).
			Update("project_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	return passThrough(err, "project")
}

// Tags

func (s *CatalogService) ListTags(ctx context.Context, sc tenant.Scope) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).Where("workspace_id = ?", sc.WorkspaceID).Order("name").Find(&tags).Error
	return tags, dbError(err, "tags")
}

func (s *CatalogService) CreateTag(ctx context.Context, sc tenant.Scope, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if err := requireName(name); err != nil {
		return nil, err
	}
	t := &models.Tag{WorkspaceID: sc.WorkspaceID, Name: name}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, dbError(err, "tag")
	}
	return t, nil
}

func (s *CatalogService) RenameTag(ctx context.Context, sc tenant.Scope, id uint, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if err := requireName(name); err != nil {
		return nil, err
	}
	var t models.Tag
	db := s.db.WithContext(ctx)
	if err := db.Where("workspace_id = ?", sc.WorkspaceID).First(&t, id).Error; err != nil {
		return nil, dbError(err, "tag")
	}
	if err := db.Model(&t).Update("name", name).Error; err != nil {
		return nil, dbError(err, "tag")
	}
	return &t, nil
}

// DeleteTag removes the tag from every entry.
func (s *CatalogService) DeleteTag(ctx context.Context, sc tenant.Scope, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tag
		if err := tx.Where("workspace_id = ?", sc.WorkspaceID).First(&t, id).Error; err != nil {
			return dbError(err, "tag")
		}
		if err := tx.Exec("DELETE FROM time_entry_tags WHERE tag_id = ?", t.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	return passThrough(err, "tag")
}

func requireName(name string) error {
	v := validation.Violations{}
	validation.Required("name", name, v)
	if len(name) > 100 {
		v.Add("name", "too_large")
	}
	if !v.Empty() {
		return validationError(v)
	}
	return nil
}
