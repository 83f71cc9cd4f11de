package vouchers

import (
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VoucherDTO struct {
	ID           uuid.UUID           `json:"id"`
	CustomerID   uuid.UUID           `json:"customer_id"`
	OrderID      uuid.UUID           `json:"order_id"`
	ProductID    uuid.UUID           `json:"product_id"`
	ProductName  string              `json:"product_name"`
	Quantity     int                 `json:"quantity"`
	Amount       decimal.Decimal     `json:"amount"`
	BillingMonth string              `json:"billing_month"`
	Status       enums.VoucherStatus `json:"status"`
	SettlementID *uuid.UUID          `json:"settlement_id,omitempty"`
	PaidAt       *time.Time          `json:"paid_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type SettlementDTO struct {
	ID            uuid.UUID           `json:"id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	BillingMonth  string              `json:"billing_month"`
	VoucherCount  int                 `json:"voucher_count"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Reference     *string             `json:"reference,omitempty"`
	SettledBy     uuid.UUID           `json:"settled_by"`
	SettledAt     time.Time           `json:"settled_at"`
}

type ListVouchersInput struct {
	CustomerID   *uuid.UUID
	BillingMonth string
	Status       string
	Limit        int
	Cursor       string
}

// SettleInput pays every pending voucher of a customer for one month.
type SettleInput struct {
	CustomerID    uuid.UUID `json:"customer_id" validate:"required"`
	BillingMonth  string    `json:"billing_month" validate:"required,month"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Reference     *string   `json:"reference,omitempty" validate:"omitempty,max=120"`
}

func FromModel(v models.Voucher) VoucherDTO {
	return VoucherDTO{
		ID:           v.ID,
		CustomerID:   v.CustomerID,
		OrderID:      v.OrderID,
		ProductID:    v.ProductID,
		ProductName:  v.ProductName,
		Quantity:     v.Quantity,
		Amount:       v.Amount,
		BillingMonth: v.BillingMonth,
		Status:       v.Status,
		SettlementID: v.SettlementID,
		PaidAt:       v.PaidAt,
		CreatedAt:    v.CreatedAt,
	}
}

func settlementFromModel(s models.VoucherSettlement) SettlementDTO {
	return SettlementDTO{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		BillingMonth:  s.BillingMonth,
		VoucherCount:  s.VoucherCount,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		Reference:     s.Reference,
		SettledBy:     s.SettledBy,
		SettledAt:     s.SettledAt,
	}
}
