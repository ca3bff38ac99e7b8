package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"gorm.io/gorm"
)

type SettingsParams struct {
	SenderName        string
	SenderAddress     string
	BillableRateCents int64
}

// SettingsService manages per-workspace invoice settings.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the workspace settings, creating defaults on first use: the
// owner's name as sender and a zero rate.
func (s *SettingsService) Get(ctx context.Context, sc tenant.Scope) (*models.InvoiceSetting, error) {
	setting, err := loadSettings(s.db.WithContext(ctx), sc.WorkspaceID)
	if err != nil {
		return nil, dbError(err, "invoice settings")
	}
	return setting, nil
}

// Update replaces the settings.
func (s *SettingsService) Update(ctx context.Context, sc tenant.Scope, p SettingsParams) (*models.InvoiceSetting, error) {
	v := validation.Violations{}
	validation.Required("sender_name", p.SenderName, v)
	validation.NonNegative("billable_rate_cents", p.BillableRateCents, v)
	if !v.Empty() {
		return nil, validationError(v)
	}
	setting, err := s.Get(ctx, sc)
	if err != nil {
		return nil, err
	}
	setting.SenderName = strings.TrimSpace(p.SenderName)
	setting.SenderAddress = strings.TrimSpace(p.SenderAddress)
	setting.BillableRateCents = p.BillableRateCents
	if err := s.db.WithContext(ctx).Save(setting).Error; err != nil {
		return nil, dbError(err, "invoice settings")
	}
	return setting, nil
}

func loadSettings(db *gorm.DB, workspaceID uint) (*models.InvoiceSetting, error) {
	var setting models.InvoiceSetting
	err := db.Where("workspace_id = ?", workspaceID).First(&setting).Error
	if err == nil {
		return &setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var ws models.Workspace
	if err := db.Preload("Owner").First(&ws, workspaceID).Error; err != nil {
		return nil, err
	}
	setting = models.InvoiceSetting{WorkspaceID: workspaceID}
	if ws.Owner != nil {
		setting.SenderName = ws.Owner.Name
	}
	err = db.Where(models.InvoiceSetting{WorkspaceID: workspaceID}).
		Attrs(setting).
		FirstOrCreate(&setting).Error
	return &setting, err
}
