package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterRequest is the self-service signup payload of a customer.
type RegisterRequest struct {
	Name           string  `json:"name" validate:"required,min=2,max=120"`
	Phone          string  `json:"phone" validate:"required,phone"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Password       string  `json:"password" validate:"required"`
	Address        string  `json:"address" validate:"required,min=4,max=255"`
	District       *string `json:"district,omitempty" validate:"omitempty,max=80"`
	DocumentNumber *string `json:"document_number,omitempty" validate:"omitempty,min=8,max=12"`
}

// RegisterService creates customer accounts and signs them in.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*CustomerLoginResponse, error)
}

type customerWriter interface {
	WithTx(tx *gorm.DB) customers.Repository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	Customers      customerWriter
	PasswordConfig config.PasswordConfig
	Login          Service
}

type registerService struct {
	tx          txRunner
	customers   customerWriter
	passwordCfg config.PasswordConfig
	login       Service
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer repository required")
	}
	if params.Login == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "login service required")
	}
	return &registerService{
		tx:          params.DB,
		customers:   params.Customers,
		passwordCfg: params.PasswordConfig,
		login:       params.Login,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*CustomerLoginResponse, error) {
	phone := customers.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if err := security.ValidatePasswordStrength(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.customers.WithTx(tx)
		if _, err := repo.FindByPhone(ctx, phone); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check customer phone")
		}

		customer := &models.Customer{
			ID:             uuid.New(),
			Name:           strings.TrimSpace(req.Name),
			Phone:          phone,
			Email:          lowerOptional(req.Email),
			Address:        strings.TrimSpace(req.Address),
			District:       trimOptional(req.District),
			DocumentNumber: trimOptional(req.DocumentNumber),
			PasswordHash:   passwordHash,
			IsActive:       true,
		}
		if err := repo.Create(ctx, customer); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.login.CustomerLogin(ctx, CustomerLoginRequest{Phone: phone, Password: req.Password})
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func lowerOptional(value *string) *string {
	trimmed := trimOptional(value)
	if trimmed == nil {
		return nil
	}
	lowered := strings.ToLower(*trimmed)
	return &lowered
}
