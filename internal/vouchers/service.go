package vouchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// monthLayout is the billing month format, e.g. 2026-03.
const monthLayout = "2006-01"

// billingZone is Peru time; vouchers issued late on the last day of a month
// belong to that month locally.
var billingZone = time.FixedZone("PET", -5*60*60)

// BillingMonth returns the billing month t falls in.
func BillingMonth(t time.Time) string {
	return t.In(billingZone).Format(monthLayout)
}

// ValidMonth reports whether raw is a YYYY-MM month.
func ValidMonth(raw string) bool {
	_, err := time.Parse(monthLayout, raw)
	return err == nil
}

type Service interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
	VoidForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	List(ctx context.Context, input ListVouchersInput) (*pagination.Page[VoucherDTO], error)
	Settle(ctx context.Context, input SettleInput, actor outbox.ActorRef) (*SettlementDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, now: time.Now}, nil
}

// IssueForOrder writes one pending voucher per order line. The delivery fee
// rides on the first voucher so the vouchers add up to the order total.
func (s *service) IssueForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil || order.CustomerID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vouchers require a registered customer")
	}
	issuedAt := order.CreatedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	month := BillingMonth(issuedAt)

	rows := make([]models.Voucher, 0, len(order.Items))
	for i, item := range order.Items {
		amount := item.Subtotal
		if i == 0 {
			amount = amount.Add(order.DeliveryFee)
		}
		rows = append(rows, models.Voucher{
			ID:           uuid.New(),
			CustomerID:   *order.CustomerID,
			OrderID:      order.ID,
			OrderItemID:  item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			Amount:       amount,
			BillingMonth: month,
			Status:       enums.VoucherStatusPending,
		})
	}
	if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert vouchers")
	}
	return nil
}

// VoidForOrder annuls the vouchers of an order that will not be delivered.
// An order whose vouchers were already settled cannot be voided.
func (s *service) VoidForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	paid, err := repo.CountPaidByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count paid vouchers")
	}
	if paid > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order vouchers already settled").
			WithDetails(map[string]any{"paid_vouchers": paid})
	}
	if _, err := repo.VoidPendingByOrder(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: void vouchers")
	}
	return nil
}

func (s *service) List(ctx context.Context, input ListVouchersInput) (*pagination.Page[VoucherDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters := ListFilters{CustomerID: input.CustomerID}
	if month := strings.TrimSpace(input.BillingMonth); month != "" {
		if !ValidMonth(month) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing month must be YYYY-MM")
		}
		filters.BillingMonth = month
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseVoucherStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	rows, err := s.repo.List(ctx, filters, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list vouchers")
	}
	dtos := make([]VoucherDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	page := pagination.Paginate(dtos, input.Limit, func(v VoucherDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}

func (s *service) Settle(ctx context.Context, input SettleInput, actor outbox.ActorRef) (*SettlementDTO, error) {
	month := strings.TrimSpace(input.BillingMonth)
	if !ValidMonth(month) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing month must be YYYY-MM")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method")
	}
	if method.RequiresCustomer() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "vouchers cannot be settled with %s", method)
	}

	var settlement models.VoucherSettlement
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pending, err := repo.PendingForMonth(ctx, input.CustomerID, month)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pending vouchers")
		}
		if len(pending) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending vouchers for month")
		}

		total := decimal.Zero
		ids := make([]uuid.UUID, 0, len(pending))
		for _, v := range pending {
			total = total.Add(v.Amount)
			ids = append(ids, v.ID)
		}
		now := s.now().UTC()
		settlement = models.VoucherSettlement{
			ID:            uuid.New(),
			CustomerID:    input.CustomerID,
			BillingMonth:  month,
			VoucherCount:  len(pending),
			Total:         total,
			PaymentMethod: method,
			Reference:     trimOptional(input.Reference),
			SettledBy:     actor.UserID,
			SettledAt:     now,
		}
		if err := repo.CreateSettlement(ctx, &settlement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert settlement")
		}
		updated, err := repo.MarkPaid(ctx, ids, settlement.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark vouchers paid")
		}
		if int(updated) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vouchers changed during settlement")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVouchersSettled,
			AggregateType: enums.AggregateVoucher,
			AggregateID:   settlement.ID,
			Actor:         &actor,
			OccurredAt:    now,
			Data: payloads.VouchersSettledEvent{
				SettlementID: settlement.ID,
				CustomerID:   settlement.CustomerID,
				BillingMonth: month,
				VoucherCount: settlement.VoucherCount,
				Total:        total,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := settlementFromModel(settlement)
	return &dto, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
