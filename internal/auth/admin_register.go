package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/aguasol/aguasol-backend/internal/admins"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/security"
	"gorm.io/gorm"
)

// AdminRegisterRequest contains the credentials of a new back-office operator.
type AdminRegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminRegisterService creates operators. It backs the create-admin command.
type AdminRegisterService interface {
	Register(ctx context.Context, req AdminRegisterRequest) (*admins.AdminDTO, error)
}

type adminCreator interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	Create(ctx context.Context, dto admins.CreateAdminDTO) (*models.Admin, error)
}

type adminRegisterService struct {
	repo        adminCreator
	passwordCfg config.PasswordConfig
}

// NewAdminRegisterService builds the operator registration service.
func NewAdminRegisterService(repo adminCreator, passwordCfg config.PasswordConfig) (AdminRegisterService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin repository required")
	}
	return &adminRegisterService{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *adminRegisterService) Register(ctx context.Context, req AdminRegisterRequest) (*admins.AdminDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check admin email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	admin, err := s.repo.Create(ctx, admins.CreateAdminDTO{Email: email, Name: name, PasswordHash: passwordHash})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
	}
	return admins.FromModel(admin), nil
}
