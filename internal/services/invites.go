package services

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/notify"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/diewo77/go-timesheets/validation"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// InviteNotifier queues invitation emails.
type InviteNotifier interface {
	InviteCreated(e notify.InviteCreated) error
}

type InviteParams struct {
	Email string
	Role  models.Role
}

// InviteService invites people to workspaces and answers invitations.
type InviteService struct {
	db       *gorm.DB
	notifier InviteNotifier
	log      *logger.Logger
	now      func() time.Time
}

func NewInviteService(db *gorm.DB, notifier InviteNotifier, log *logger.Logger) *InviteService {
	return &InviteService{db: db, notifier: notifier, log: log.Named("invites"), now: time.Now}
}

// Create invites an email address. Only the owner may invite admins.
func (s *InviteService) Create(ctx context.Context, sc tenant.Scope, p InviteParams) (*models.Invite, error) {
	email := models.NormalizeEmail(p.Email)
	v := validation.Violations{}
	if !validation.Email(email) {
		v.Add("email", "invalid_email")
	}
	role := p.Role
	if role == "" {
		role = models.RoleMember
	}
	switch {
	case role != models.RoleMember && role != models.RoleAdmin:
		v.Add("role", "invalid_value")
	case role == models.RoleAdmin && !sc.IsOwner():
		v.Add("role", "owner_only")
	}
	if !v.Empty() {
		return nil, validationError(v)
	}

	var (
		invite    *models.Invite
		workspace models.Workspace
		inviter   models.User
	)
	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&workspace, sc.WorkspaceID).Error; err != nil {
			return dbError(err, "workspace")
		}
		if err := tx.First(&inviter, sc.UserID).Error; err != nil {
			return dbError(err, "user")
		}
		var members int64
		if err := tx.Model(&models.Membership{}).
			Joins("JOIN users ON users.id = memberships.user_id").
			Where("memberships.workspace_id = ? AND users.email = ?", sc.WorkspaceID, email).
			Count(&members).Error; err != nil {
			return err
		}
		if members > 0 {
			return conflict("This person is already a member of the workspace")
		}
		// a stale pending invite past its expiry no longer blocks a new one
		if err := tx.Model(&models.Invite{}).
			Where("workspace_id = ? AND email = ? AND status = ? AND expires_at <= ?",
				sc.WorkspaceID, email, models.InviteStatusPending, now).
			Update("status", models.InviteStatusExpired).Error; err != nil {
			return err
		}
		invite = &models.Invite{
			WorkspaceID: sc.WorkspaceID,
			InviterID:   sc.UserID,
			Email:       email,
			Role:        role,
			Token:       ulid.Make().String(),
			Status:      models.InviteStatusPending,
			ExpiresAt:   now.Add(models.InviteTTL),
		}
		if err := tx.Create(invite).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("This person already has a pending invitation")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "invite")
	}

	if err := s.notifier.InviteCreated(notify.InviteCreated{
		InviteID:      invite.ID,
		Email:         invite.Email,
		Role:          string(invite.Role),
		Token:         invite.Token,
		WorkspaceName: workspace.Name,
		InviterName:   inviter.Name,
		ExpiresAt:     invite.ExpiresAt,
	}); err != nil {
		// the invite stands; the email can be re-sent by cancelling and inviting again
		s.log.Warnw("invite notification failed", "invite_id", invite.ID, "error", err)
	}
	return invite, nil
}

// ListPending returns the workspace's pending invites.
func (s *InviteService) ListPending(ctx context.Context, sc tenant.Scope) ([]models.Invite, error) {
	var invites []models.Invite
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND status = ?", sc.WorkspaceID, models.InviteStatusPending).
		Order("created_at DESC").Find(&invites).Error
	return invites, dbError(err, "invites")
}

// Cancel deletes an invite of the workspace.
func (s *InviteService) Cancel(ctx context.Context, sc tenant.Scope, id uint) error {
	res := s.db.WithContext(ctx).Where("workspace_id = ?", sc.WorkspaceID).Delete(&models.Invite{}, id)
	if res.Error != nil {
		return dbError(res.Error, "invite")
	}
	if res.RowsAffected == 0 {
		return notFound("invite")
	}
	return nil
}

// ListForUser returns the pending, unexpired invites sent to userID's
// email.
func (s *InviteService) ListForUser(ctx context.Context, userID uint) ([]models.Invite, error) {
	var user models.User
	db := s.db.WithContext(ctx)
	if err := db.First(&user, userID).Error; err != nil {
		return nil, dbError(err, "user")
	}
	var invites []models.Invite
	err := db.Preload("Workspace").Preload("Inviter").
		Where("email = ? AND status = ? AND expires_at > ?", user.Email, models.InviteStatusPending, s.now().UTC()).
		Order("created_at DESC").Find(&invites).Error
	return invites, dbError(err, "invites")
}

// Accept joins the invited workspace and makes it the user's current one.
func (s *InviteService) Accept(ctx context.Context, userID uint, token string) (*models.Membership, error) {
	var m *models.Membership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.answerable(tx, userID, token)
		if err != nil {
			return err
		}
		m = &models.Membership{WorkspaceID: invite.WorkspaceID, UserID: userID, Role: invite.Role}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("You are already a member of this workspace")
			}
			return err
		}
		if err := tx.Model(invite).Update("status", models.InviteStatusAccepted).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("last_used_workspace_id", invite.WorkspaceID).Error
	})
	if err != nil {
		return nil, passThrough(err, "invite")
	}
	return m, nil
}

// Decline refuses a pending invite.
func (s *InviteService) Decline(ctx context.Context, userID uint, token string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.answerable(tx, userID, token)
		if err != nil {
			return err
		}
		return tx.Model(invite).Update("status", models.InviteStatusDeclined).Error
	})
	return passThrough(err, "invite")
}

// answerable loads the user's invite by token and checks it is still
// pending and unexpired.
func (s *InviteService) answerable(tx *gorm.DB, userID uint, token string) (*models.Invite, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return nil, dbError(err, "user")
	}
	var invite models.Invite
	if err := tx.Where("token = ? AND email = ?", token, user.Email).First(&invite).Error; err != nil {
		return nil, dbError(err, "invite")
	}
	if !invite.Pending() {
		return nil, conflict("Invitation was already " + string(invite.Status))
	}
	if invite.Expired(s.now()) {
		return nil, conflict("Invitation has expired")
	}
	return &invite, nil
}
