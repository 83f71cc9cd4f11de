package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// Voucher ("vale") is a deferred-payment receipt for one order line, billed
// with the rest of the customer's month.
type Voucher struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID   uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	OrderID      uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	OrderItemID  uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null"`
	ProductID    uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	ProductName  string              `gorm:"column:product_name;not null"`
	Quantity     int                 `gorm:"column:quantity;not null"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	BillingMonth string              `gorm:"column:billing_month;not null"`
	Status       enums.VoucherStatus `gorm:"column:status;type:voucher_status;not null"`
	SettlementID *uuid.UUID          `gorm:"column:settlement_id;type:uuid"`
	PaidAt       *time.Time          `gorm:"column:paid_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// VoucherSettlement records the payment of a customer's vouchers for a month.
type VoucherSettlement struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	BillingMonth  string              `gorm:"column:billing_month;not null"`
	VoucherCount  int                 `gorm:"column:voucher_count;not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	Reference     *string             `gorm:"column:reference"`
	SettledBy     uuid.UUID           `gorm:"column:settled_by;type:uuid;not null"`
	SettledAt     time.Time           `gorm:"column:settled_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
