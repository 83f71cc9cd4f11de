package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
)

// Subscription is a monthly plan granting UnitsPerPeriod units of a product.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID                `gorm:"column:customer_id;type:uuid;not null"`
	ProductID          uuid.UUID                `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string                   `gorm:"column:product_name;not null"`
	UnitsPerPeriod     int                      `gorm:"column:units_per_period;not null"`
	RemainingUnits     int                      `gorm:"column:remaining_units;not null"`
	PricePerPeriod     decimal.Decimal          `gorm:"column:price_per_period;type:numeric(12,2);not null"`
	PriceLevel         pricing.Level            `gorm:"column:price_level;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	CurrentPeriodStart time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd   time.Time                `gorm:"column:current_period_end;not null"`
	PausedAt           *time.Time               `gorm:"column:paused_at"`
	CanceledAt         *time.Time               `gorm:"column:canceled_at"`
	Notes              *string                  `gorm:"column:notes"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
