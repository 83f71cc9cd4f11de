package customers

import (
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CustomerDTO is the public view of a registered customer.
type CustomerDTO struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Email          *string    `json:"email,omitempty"`
	Address        string     `json:"address"`
	District       *string    `json:"district,omitempty"`
	DocumentNumber *string    `json:"document_number,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FromModel maps a customer row onto its DTO.
func FromModel(c *models.Customer) *CustomerDTO {
	if c == nil {
		return nil
	}
	return &CustomerDTO{
		ID:             c.ID,
		Name:           c.Name,
		Phone:          c.Phone,
		Email:          c.Email,
		Address:        c.Address,
		District:       c.District,
		DocumentNumber: c.DocumentNumber,
		IsActive:       c.IsActive,
		LastLoginAt:    c.LastLoginAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CreateCustomerInput is the admin payload for registering a walk-in
// customer. A temporary password is generated for them.
type CreateCustomerInput struct {
	Name           string  `json:"name" validate:"required,min=2,max=120"`
	Phone          string  `json:"phone" validate:"required,phone"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Address        string  `json:"address" validate:"required,min=4,max=255"`
	District       *string `json:"district,omitempty" validate:"omitempty,max=80"`
	DocumentNumber *string `json:"document_number,omitempty" validate:"omitempty,min=8,max=12"`
}

// UpdateCustomerInput holds optional profile changes.
type UpdateCustomerInput struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Address        *string `json:"address,omitempty" validate:"omitempty,min=4,max=255"`
	District       *string `json:"district,omitempty" validate:"omitempty,max=80"`
	DocumentNumber *string `json:"document_number,omitempty" validate:"omitempty,min=8,max=12"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// CreatedCustomer carries the one-time temporary password.
type CreatedCustomer struct {
	Customer     *CustomerDTO `json:"customer"`
	TempPassword string       `json:"temp_password"`
}

// ListCustomersInput filters the back-office customer list.
type ListCustomersInput struct {
	Query  string
	Limit  int
	Cursor string
}
