package orders

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/document"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one requested product line.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// CreateOrderInput is the order placement payload. CustomerID is filled from
// the token by the controller and never read from the body.
type CreateOrderInput struct {
	CustomerID      *uuid.UUID  `json:"-"`
	ContactName     string      `json:"contact_name" validate:"omitempty,max=120"`
	ContactPhone    string      `json:"contact_phone" validate:"omitempty,phone"`
	DeliveryAddress string      `json:"delivery_address" validate:"omitempty,max=255"`
	District        *string     `json:"district,omitempty" validate:"omitempty,max=80"`
	Notes           *string     `json:"notes,omitempty" validate:"omitempty,max=500"`
	PaymentMethod   string      `json:"payment_method" validate:"required"`
	Items           []LineInput `json:"items" validate:"required,min=1,dive"`
}

// StatusChangeInput moves an order through its lifecycle.
type StatusChangeInput struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

// ListOrdersInput drives both customer history and the admin listing.
type ListOrdersInput struct {
	CustomerID *uuid.UUID
	Status     string
	From       *time.Time
	To         *time.Time
	Phone      string
	Limit      int
	Cursor     string
}

type OrderItemDTO struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	PriceLevel    pricing.Level   `json:"price_level"`
	Savings       decimal.Decimal `json:"savings"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     int64               `json:"order_number"`
	Code            string              `json:"code"`
	CustomerID      *uuid.UUID          `json:"customer_id,omitempty"`
	ContactName     string              `json:"contact_name"`
	ContactPhone    string              `json:"contact_phone"`
	DeliveryAddress string              `json:"delivery_address"`
	District        *string             `json:"district,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentLabel    string              `json:"payment_label"`
	Status          enums.OrderStatus   `json:"status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	Total           decimal.Decimal     `json:"total"`
	Savings         decimal.Decimal     `json:"savings"`
	SubscriptionID  *uuid.UUID          `json:"subscription_id,omitempty"`
	CancelReason    *string             `json:"cancel_reason,omitempty"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	DispatchedAt    *time.Time          `json:"dispatched_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CanceledAt      *time.Time          `json:"canceled_at,omitempty"`
	ExpiredAt       *time.Time          `json:"expired_at,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TrackingDTO is the reduced view returned by public tracking.
type TrackingDTO struct {
	Code         string            `json:"code"`
	Status       enums.OrderStatus `json:"status"`
	PaymentLabel string            `json:"payment_label"`
	Total        decimal.Decimal   `json:"total"`
	Items        []TrackingLine    `json:"items"`
	CreatedAt    time.Time         `json:"created_at"`
	ConfirmedAt  *time.Time        `json:"confirmed_at,omitempty"`
	DispatchedAt *time.Time        `json:"dispatched_at,omitempty"`
	DeliveredAt  *time.Time        `json:"delivered_at,omitempty"`
	CanceledAt   *time.Time        `json:"canceled_at,omitempty"`
	ExpiredAt    *time.Time        `json:"expired_at,omitempty"`
}

type TrackingLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// SummaryDTO is the admin dashboard aggregate for a date range.
type SummaryDTO struct {
	From             time.Time                   `json:"from"`
	To               time.Time                   `json:"to"`
	TotalOrders      int64                       `json:"total_orders"`
	ByStatus         map[enums.OrderStatus]int64 `json:"by_status"`
	DeliveredRevenue decimal.Decimal             `json:"delivered_revenue"`
	DeliveredSavings decimal.Decimal             `json:"delivered_savings"`
}

// FormatCode renders the customer-facing order code, e.g. AS-001042.
func FormatCode(prefix string, number int64) string {
	if prefix == "" {
		return fmt.Sprintf("%06d", number)
	}
	return fmt.Sprintf("%s-%06d", prefix, number)
}

// ParseCode accepts either a bare number or a prefixed code and returns the
// trailing digits.
func ParseCode(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	end := len(raw)
	start := end
	for start > 0 && unicode.IsDigit(rune(raw[start-1])) {
		start--
	}
	if start == end {
		return 0, fmt.Errorf("order number %q has no digits", raw)
	}
	n, err := strconv.ParseInt(raw[start:end], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid order number %q", raw)
	}
	return n, nil
}

// FromModel maps a persisted order into its API shape.
func FromModel(order models.Order, prefix string) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			PriceLevel:    item.PriceLevel,
			Savings:       item.Savings,
			Subtotal:      item.Subtotal,
		})
	}
	return OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Code:            FormatCode(prefix, order.OrderNumber),
		CustomerID:      order.CustomerID,
		ContactName:     order.ContactName,
		ContactPhone:    order.ContactPhone,
		DeliveryAddress: order.DeliveryAddress,
		District:        order.District,
		Notes:           order.Notes,
		PaymentMethod:   order.PaymentMethod,
		PaymentLabel:    document.PaymentLabel(string(order.PaymentMethod)),
		Status:          order.Status,
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Total:           order.Total,
		Savings:         order.Savings,
		SubscriptionID:  order.SubscriptionID,
		CancelReason:    order.CancelReason,
		ConfirmedAt:     order.ConfirmedAt,
		DispatchedAt:    order.DispatchedAt,
		DeliveredAt:     order.DeliveredAt,
		CanceledAt:      order.CanceledAt,
		ExpiredAt:       order.ExpiredAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func trackingFromModel(order models.Order, prefix string) TrackingDTO {
	lines := make([]TrackingLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, TrackingLine{ProductName: item.ProductName, Quantity: item.Quantity})
	}
	return TrackingDTO{
		Code:         FormatCode(prefix, order.OrderNumber),
		Status:       order.Status,
		PaymentLabel: document.PaymentLabel(string(order.PaymentMethod)),
		Total:        order.Total,
		Items:        lines,
		CreatedAt:    order.CreatedAt,
		ConfirmedAt:  order.ConfirmedAt,
		DispatchedAt: order.DispatchedAt,
		DeliveredAt:  order.DeliveredAt,
		CanceledAt:   order.CanceledAt,
		ExpiredAt:    order.ExpiredAt,
	}
}
