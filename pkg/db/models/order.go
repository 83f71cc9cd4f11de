package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
)

// Order is a delivery request. CustomerID is nil for guest orders.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64               `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID      *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	ContactName     string              `gorm:"column:contact_name;not null"`
	ContactPhone    string              `gorm:"column:contact_phone;not null"`
	DeliveryAddress string              `gorm:"column:delivery_address;not null"`
	District        *string             `gorm:"column:district"`
	Notes           *string             `gorm:"column:notes"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Savings         decimal.Decimal     `gorm:"column:savings;type:numeric(12,2);not null;default:0"`
	SubscriptionID  *uuid.UUID          `gorm:"column:subscription_id;type:uuid"`
	CancelReason    *string             `gorm:"column:cancel_reason"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at"`
	DispatchedAt    *time.Time          `gorm:"column:dispatched_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CanceledAt      *time.Time          `gorm:"column:canceled_at"`
	ExpiredAt       *time.Time          `gorm:"column:expired_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the order was placed without an account.
func (o Order) IsGuest() bool {
	return o.CustomerID == nil
}

// OrderItem snapshots the price evaluation of one product at order time.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName   string          `gorm:"column:product_name;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(10,2);not null"`
	PriceLevel    pricing.Level   `gorm:"column:price_level;not null"`
	Savings       decimal.Decimal `gorm:"column:savings;type:numeric(12,2);not null;default:0"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
