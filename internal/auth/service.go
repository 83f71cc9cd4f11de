package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aguasol/aguasol-backend/internal/admins"
	"github.com/aguasol/aguasol-backend/internal/customers"
	pkgAuth "github.com/aguasol/aguasol-backend/pkg/auth"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	CustomerLogin(ctx context.Context, req CustomerLoginRequest) (*CustomerLoginResponse, error)
	AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminLoginResponse, error)
}

type customerRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error
}

type adminRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error
}

type service struct {
	customers   customerRepository
	admins      adminRepository
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
// PasswordConfig is the current hashing cost; stored hashes made with an
// older cost are upgraded on the next successful login.
type ServiceParams struct {
	CustomerRepo   customerRepository
	AdminRepo      adminRepository
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CustomerRepo == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if params.AdminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	return &service{
		customers:   params.CustomerRepo,
		admins:      params.AdminRepo,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CustomerLogin(ctx context.Context, req CustomerLoginRequest) (*CustomerLoginResponse, error) {
	phone := customers.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	customer, err := s.customers.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if err := checkPassword(req.Password, customer.PasswordHash, customer.IsActive); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.customers.RecordLogin(ctx, customer.ID, now, s.rehash(req.Password, customer.PasswordHash)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	customer.LastLoginAt = &now

	token, err := s.mint(now, customer.ID, enums.RoleCustomer, customer.Name)
	if err != nil {
		return nil, err
	}
	return &CustomerLoginResponse{AccessToken: token, Customer: customers.FromModel(customer)}, nil
}

func (s *service) AdminLogin(ctx context.Context, req AdminLoginRequest) (*AdminLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if err := checkPassword(req.Password, admin.PasswordHash, admin.IsActive); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.admins.RecordLogin(ctx, admin.ID, now, s.rehash(req.Password, admin.PasswordHash)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	admin.LastLoginAt = &now

	token, err := s.mint(now, admin.ID, enums.RoleAdmin, admin.Name)
	if err != nil {
		return nil, err
	}
	return &AdminLoginResponse{AccessToken: token, Admin: admins.FromModel(admin)}, nil
}

func (s *service) mint(now time.Time, subject uuid.UUID, role enums.Role, name string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		SubjectID: subject,
		Role:      role,
		Name:      name,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

// rehash returns a fresh hash when the stored one predates the configured
// cost, or "" when nothing needs to change. Failures keep the old hash.
func (s *service) rehash(password, stored string) string {
	if !security.NeedsRehash(stored, s.passwordCfg) {
		return ""
	}
	upgraded, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return ""
	}
	return upgraded
}

func checkPassword(password, hash string, active bool) error {
	valid, err := security.VerifyPassword(password, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !active {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return nil
}
