package services

import (
	"context"
	"errors"
	"strings"

	"github.com/diewo77/go-timesheets/auth"
	ierr "github.com/diewo77/go-timesheets/internal/errors"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/validation"
	"gorm.io/gorm"
)

type SignupParams struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	TimeZone string `json:"time_zone" validate:"omitempty,timezone"`
}

// UserService handles accounts.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Signup creates the account and a personal workspace owned by it.
func (s *UserService) Signup(ctx context.Context, p SignupParams) (*models.User, *models.Workspace, error) {
	p.Email = models.NormalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if v := validation.Struct(p); !v.Empty() {
		return nil, nil, validationError(v)
	}
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	tz := p.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	user := &models.User{Email: p.Email, Name: p.Name, PasswordHash: hash, TimeZone: tz}
	var ws *models.Workspace
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("An account with this email already exists")
			}
			return err
		}
		name := p.Name + "'s Workspace"
		ws, err = createWorkspace(tx, user.ID, WorkspaceParams{Name: &name, TimeZone: &tz})
		if err != nil {
			return err
		}
		user.LastUsedWorkspaceID = &ws.ID
		return nil
	})
	if err != nil {
		return nil, nil, passThrough(err, "user")
	}
	return user, ws, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, password)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, ierr.WithError(auth.ErrInvalidCredentials).
				WithHint("Invalid email or password").
				Mark(ierr.ErrUnauthenticated)
		}
		return nil, dbError(err, "user")
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, dbError(err, "user")
	}
	return &user, nil
}

// Exists backs auth.SetUserVerifier.
func (s *UserService) Exists(ctx context.Context, id uint) bool {
	var count int64
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error == nil && count > 0
}
