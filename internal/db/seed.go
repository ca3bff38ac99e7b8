package db

import (
	"fmt"
	"time"

	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/internal/models"
	"gorm.io/gorm"
)

// Demo account created by Seed.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo-password"
)

// Seed inserts a demo user, workspace, catalog and a week of time entries.
// Running it again leaves existing rows untouched.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("email = ?", DemoEmail).First(&user).Error; err != nil {
			hash, herr := auth.HashPassword(DemoPassword)
			if herr != nil {
				return herr
			}
			user = models.User{Email: DemoEmail, Name: "Demo User", PasswordHash: hash, TimeZone: "UTC"}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("seed user: %w", err)
			}
		}

		ws := models.Workspace{}
		if err := tx.Where(models.Workspace{Name: "Demo Workspace", OwnerID: user.ID}).
			Attrs(models.Workspace{TimeZone: "UTC"}).
			FirstOrCreate(&ws).Error; err != nil {
			return fmt.Errorf("seed workspace: %w", err)
		}
		if err := tx.Where(models.Membership{WorkspaceID: ws.ID, UserID: user.ID}).
			Attrs(models.Membership{Role: models.RoleOwner}).
			FirstOrCreate(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("seed membership: %w", err)
		}
		if user.LastUsedWorkspaceID == nil {
			if err := tx.Model(&user).Update("last_used_workspace_id", ws.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Where(models.InvoiceSetting{WorkspaceID: ws.ID}).
			Attrs(models.InvoiceSetting{SenderName: "Demo Consulting", SenderAddress: "1 Main Street\nSpringfield", BillableRateCents: 10000}).
			FirstOrCreate(&models.InvoiceSetting{}).Error; err != nil {
			return fmt.Errorf("seed invoice settings: %w", err)
		}

		client := models.Client{}
		if err := tx.Where(models.Client{WorkspaceID: ws.ID, Name: "Acme Corp"}).
			Attrs(models.Client{BillingAddress: "42 Industrial Way\nMetropolis"}).
			FirstOrCreate(&client).Error; err != nil {
			return fmt.Errorf("seed client: %w", err)
		}
		project := models.Project{}
		if err := tx.Where(models.Project{WorkspaceID: ws.ID, Name: "Website"}).
			Attrs(models.Project{ClientID: &client.ID, Color: models.DefaultColor("Website"), BillableDefault: true}).
			FirstOrCreate(&project).Error; err != nil {
			return fmt.Errorf("seed project: %w", err)
		}
		internal := models.Project{}
		if err := tx.Where(models.Project{WorkspaceID: ws.ID, Name: "Internal"}).
			Attrs(models.Project{Color: models.DefaultColor("Internal")}).
			FirstOrCreate(&internal).Error; err != nil {
			return fmt.Errorf("seed project: %w", err)
		}
		for _, name := range []string{"design", "meeting"} {
			if err := tx.Where(models.Tag{WorkspaceID: ws.ID, Name: name}).FirstOrCreate(&models.Tag{}).Error; err != nil {
				return fmt.Errorf("seed tag: %w", err)
			}
		}

		var entries int64
		if err := tx.Model(&models.TimeEntry{}).Where("workspace_id = ?", ws.ID).Count(&entries).Error; err != nil {
			return err
		}
		if entries > 0 {
			return nil
		}
		day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -7)
		for i := 0; i < 5; i++ {
			start := day.AddDate(0, 0, i).Add(9 * time.Hour)
			for _, e := range []models.TimeEntry{
				{ProjectID: &project.ID, Description: "Landing page", Billable: true, StartAt: start},
				{ProjectID: &internal.ID, Description: "Planning", StartAt: start.Add(4 * time.Hour)},
			} {
				end := e.StartAt.Add(90 * time.Minute)
				e.WorkspaceID, e.UserID, e.EndAt = ws.ID, user.ID, &end
				e.RecomputeDuration()
				if err := tx.Create(&e).Error; err != nil {
					return fmt.Errorf("seed time entry: %w", err)
				}
			}
		}
		return nil
	})
}
