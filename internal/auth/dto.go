package auth

import (
	"github.com/aguasol/aguasol-backend/internal/admins"
	"github.com/aguasol/aguasol-backend/internal/customers"
)

// CustomerLoginRequest captures the credentials a customer logs in with.
type CustomerLoginRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

// AdminLoginRequest captures back-office credentials.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CustomerLoginResponse contains the token and profile of the customer.
type CustomerLoginResponse struct {
	AccessToken string                 `json:"access_token"`
	Customer    *customers.CustomerDTO `json:"customer"`
}

// AdminLoginResponse contains the token and profile of the operator.
type AdminLoginResponse struct {
	AccessToken string           `json:"access_token"`
	Admin       *admins.AdminDTO `json:"admin"`
}

func (r CustomerLoginResponse) Token() string { return r.AccessToken }

func (r AdminLoginResponse) Token() string { return r.AccessToken }
