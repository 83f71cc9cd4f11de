package vouchers

import (
	"context"
	"time"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists vouchers and their monthly settlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, vouchers []models.Voucher) error
	VoidPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountPaidByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Voucher, error)
	PendingForMonth(ctx context.Context, customerID uuid.UUID, month string) ([]models.Voucher, error)
	MarkPaid(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID, paidAt time.Time) (int64, error)
	CreateSettlement(ctx context.Context, settlement *models.VoucherSettlement) error
}

// ListFilters narrows voucher listings. Zero values are ignored.
type ListFilters struct {
	CustomerID   *uuid.UUID
	BillingMonth string
	Status       *enums.VoucherStatus
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, vouchers []models.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}
	for i := range vouchers {
		if vouchers[i].ID == uuid.Nil {
			vouchers[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&vouchers).Error
}

// VoidPendingByOrder annuls the unpaid vouchers of an order. Paid vouchers
// are left untouched; callers refuse to void an order holding any.
func (r *repository) VoidPendingByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("order_id = ? AND status = ?", orderID, enums.VoucherStatusPending).
		Update("status", enums.VoucherStatusVoided)
	return result.RowsAffected, result.Error
}

func (r *repository) CountPaidByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("order_id = ? AND status = ?", orderID, enums.VoucherStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *repository) List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Voucher, error) {
	query := r.db.WithContext(ctx).Model(&models.Voucher{})
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.BillingMonth != "" {
		query = query.Where("billing_month = ?", filters.BillingMonth)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var rows []models.Voucher
	if err := query.Scopes(pagination.NewestFirst(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PendingForMonth(ctx context.Context, customerID uuid.UUID, month string) ([]models.Voucher, error) {
	var rows []models.Voucher
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND billing_month = ? AND status = ?", customerID, month, enums.VoucherStatusPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkPaid(ctx context.Context, ids []uuid.UUID, settlementID uuid.UUID, paidAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("id IN ? AND status = ?", ids, enums.VoucherStatusPending).
		Updates(map[string]any{
			"status":        enums.VoucherStatusPaid,
			"settlement_id": settlementID,
			"paid_at":       paidAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) CreateSettlement(ctx context.Context, settlement *models.VoucherSettlement) error {
	if settlement.ID == uuid.Nil {
		settlement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(settlement).Error
}
