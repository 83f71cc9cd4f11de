package subscriptions

import (
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionDTO struct {
	ID                 uuid.UUID                `json:"id"`
	CustomerID         uuid.UUID                `json:"customer_id"`
	ProductID          uuid.UUID                `json:"product_id"`
	ProductName        string                   `json:"product_name"`
	UnitsPerPeriod     int                      `json:"units_per_period"`
	RemainingUnits     int                      `json:"remaining_units"`
	PricePerPeriod     decimal.Decimal          `json:"price_per_period"`
	PriceLevel         pricing.Level            `json:"price_level"`
	Status             enums.SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	PausedAt           *time.Time               `json:"paused_at,omitempty"`
	CanceledAt         *time.Time               `json:"canceled_at,omitempty"`
	Notes              *string                  `json:"notes,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
}

type CreateSubscriptionInput struct {
	CustomerID     uuid.UUID `json:"customer_id" validate:"required"`
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	UnitsPerPeriod int       `json:"units_per_period" validate:"required,min=1"`
	Notes          *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type ListSubscriptionsInput struct {
	CustomerID *uuid.UUID
	Status     string
	Limit      int
	Cursor     string
}

func FromModel(s models.Subscription) SubscriptionDTO {
	return SubscriptionDTO{
		ID:                 s.ID,
		CustomerID:         s.CustomerID,
		ProductID:          s.ProductID,
		ProductName:        s.ProductName,
		UnitsPerPeriod:     s.UnitsPerPeriod,
		RemainingUnits:     s.RemainingUnits,
		PricePerPeriod:     s.PricePerPeriod,
		PriceLevel:         s.PriceLevel,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		PausedAt:           s.PausedAt,
		CanceledAt:         s.CanceledAt,
		Notes:              s.Notes,
		CreatedAt:          s.CreatedAt,
	}
}
