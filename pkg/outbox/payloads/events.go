package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aguasol/aguasol-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once an order and its lines are persisted.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   int64               `json:"order_number"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	ContactName   string              `json:"contact_name"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
}

// OrderStatusChangedEvent is emitted for every accepted status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber int64             `json:"order_number"`
	CustomerID  *uuid.UUID        `json:"customer_id,omitempty"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderExpiredEvent describes a guest order dropped by the expiry job.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber int64      `json:"order_number"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	ExpiredAt   time.Time  `json:"expired_at"`
	TTLHours    int        `json:"ttl_hours"`
}

// SubscriptionRenewedEvent is emitted when a plan rolls into a new period.
type SubscriptionRenewedEvent struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	ProductName    string          `json:"product_name"`
	Units          int             `json:"units"`
	PricePerPeriod decimal.Decimal `json:"price_per_period"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
}

// VouchersSettledEvent is emitted when a customer's month of vouchers is paid.
type VouchersSettledEvent struct {
	SettlementID uuid.UUID       `json:"settlement_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	BillingMonth string          `json:"billing_month"`
	VoucherCount int             `json:"voucher_count"`
	Total        decimal.Decimal `json:"total"`
}
