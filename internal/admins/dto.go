package admins

import (
	"time"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
)

// AdminDTO is the transport shape that omits credentials.
type AdminDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateAdminDTO holds the data required to persist a new operator.
type CreateAdminDTO struct {
	Email        string
	Name         string
	PasswordHash string
}

func FromModel(a *models.Admin) *AdminDTO {
	if a == nil {
		return nil
	}
	return &AdminDTO{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

func (c CreateAdminDTO) ToModel() *models.Admin {
	return &models.Admin{
		ID:           uuid.New(),
		Email:        c.Email,
		Name:         c.Name,
		PasswordHash: c.PasswordHash,
		IsActive:     true,
	}
}
