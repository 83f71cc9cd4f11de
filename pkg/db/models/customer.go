package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a registered buyer. Guests never get a row here; their contact
// data lives on the order itself.
type Customer struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	Phone          string     `gorm:"column:phone;not null;uniqueIndex"`
	Email          *string    `gorm:"column:email"`
	Address        string     `gorm:"column:address;not null"`
	District       *string    `gorm:"column:district"`
	DocumentNumber *string    `gorm:"column:document_number"`
	PasswordHash   string     `gorm:"column:password_hash;not null" json:"-"`
	IsActive       bool       `gorm:"column:is_active;not null"`
	LastLoginAt    *time.Time `gorm:"column:last_login_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
