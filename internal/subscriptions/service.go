package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pricingsvc "github.com/aguasol/aguasol-backend/internal/pricing"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	Create(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error)
	List(ctx context.Context, input ListSubscriptionsInput) (*pagination.Page[SubscriptionDTO], error)
	Pause(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error)
	Resume(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error)
	Cancel(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error)
	ConsumeUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) (uuid.UUID, error)
	RestoreUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) error
	RenewDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	Products          productReader
	Customers         customerReader
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Now               func() time.Time
}

type service struct {
	repo      Repository
	products  productReader
	customers customerReader
	txRunner  txRunner
	outbox    outboxPublisher
	now       func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		customers: params.Customers,
		txRunner:  params.TransactionRunner,
		outbox:    params.Outbox,
		now:       now,
	}, nil
}

// Create opens a monthly plan. The period price is the tier evaluation at the
// plan quantity.
func (s *service) Create(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionDTO, error) {
	if err := pricingsvc.ValidateQuantity(input.UnitsPerPeriod); err != nil {
		return nil, err
	}
	if _, err := s.customers.FindByID(ctx, input.CustomerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load customer")
	}
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	existing, err := s.repo.FindOpenForProduct(ctx, input.CustomerID, input.ProductID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load subscription")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "customer already has a plan for this product").
			WithDetails(map[string]any{"subscription_id": existing.ID})
	}

	result := pricing.Evaluate(product.PricingRecord(), input.UnitsPerPeriod)
	start := s.now().UTC()
	sub := &models.Subscription{
		ID:                 uuid.New(),
		CustomerID:         input.CustomerID,
		ProductID:          product.ID,
		ProductName:        product.Name,
		UnitsPerPeriod:     input.UnitsPerPeriod,
		RemainingUnits:     input.UnitsPerPeriod,
		PricePerPeriod:     result.TotalPrice,
		PriceLevel:         result.PriceLevel,
		Status:             enums.SubscriptionStatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
		Notes:              trimOptional(input.Notes),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert subscription")
	}
	dto := FromModel(*sub)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*sub)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListSubscriptionsInput) (*pagination.Page[SubscriptionDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters := ListFilters{CustomerID: input.CustomerID}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseSubscriptionStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	rows, err := s.repo.List(ctx, filters, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list subscriptions")
	}
	dtos := make([]SubscriptionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	page := pagination.Paginate(dtos, input.Limit, func(d SubscriptionDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	return &page, nil
}

func (s *service) Pause(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, id, func(sub *models.Subscription, now time.Time) error {
		if sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot pause a %s subscription", sub.Status)
		}
		sub.Status = enums.SubscriptionStatusPaused
		sub.PausedAt = &now
		return nil
	})
}

func (s *service) Resume(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, id, func(sub *models.Subscription, _ time.Time) error {
		if sub.Status != enums.SubscriptionStatusPaused {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot resume a %s subscription", sub.Status)
		}
		sub.Status = enums.SubscriptionStatusActive
		sub.PausedAt = nil
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, id, func(sub *models.Subscription, now time.Time) error {
		if sub.Status == enums.SubscriptionStatusCanceled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription already canceled")
		}
		sub.Status = enums.SubscriptionStatusCanceled
		sub.CanceledAt = &now
		return nil
	})
}

func (s *service) transition(ctx context.Context, id uuid.UUID, apply func(sub *models.Subscription, now time.Time) error) (*SubscriptionDTO, error) {
	var out models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		if err := apply(sub, s.now().UTC()); err != nil {
			return err
		}
		if err := repo.Save(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update subscription")
		}
		out = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(out)
	return &dto, nil
}

// ConsumeUnits draws units from the customer's active plan for the product
// and returns the plan id.
func (s *service) ConsumeUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) (uuid.UUID, error) {
	repo := s.repo.WithTx(tx)
	sub, err := repo.FindOpenForProduct(ctx, customerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no active subscription for product")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load subscription")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "subscription is %s", sub.Status)
	}
	ok, err := repo.DecrementUnits(ctx, sub.ID, units)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: consume subscription units")
	}
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough subscription units").
			WithDetails(map[string]any{"remaining_units": sub.RemainingUnits, "requested": units})
	}
	return sub.ID, nil
}

// RestoreUnits returns units from a canceled or expired order. The balance
// never exceeds the plan size.
func (s *service) RestoreUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) error {
	repo := s.repo.WithTx(tx)
	open, err := repo.FindOpenForProduct(ctx, customerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load subscription")
	}
	sub, err := s.lock(ctx, repo, open.ID)
	if err != nil {
		return err
	}
	sub.RemainingUnits += units
	if sub.RemainingUnits > sub.UnitsPerPeriod {
		sub.RemainingUnits = sub.UnitsPerPeriod
	}
	if err := repo.Save(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore subscription units")
	}
	return nil
}

// RenewDue rolls every active plan whose period ended into the current
// period, refilling units and re-pricing against the current catalog.
func (s *service) RenewDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	due, err := s.repo.FindDueForRenewal(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find due subscriptions")
	}

	var (
		renewed int
		errs    error
	)
	for _, candidate := range due {
		id := candidate.ID
		product, productErr := s.products.FindByID(ctx, candidate.ProductID)
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			sub, err := s.lock(ctx, repo, id)
			if err != nil {
				return err
			}
			if sub.Status != enums.SubscriptionStatusActive || sub.CurrentPeriodEnd.After(now) {
				return nil
			}
			start := sub.CurrentPeriodEnd
			end := start.AddDate(0, 1, 0)
			for !end.After(now) {
				start, end = end, end.AddDate(0, 1, 0)
			}
			sub.CurrentPeriodStart = start
			sub.CurrentPeriodEnd = end
			sub.RemainingUnits = sub.UnitsPerPeriod

			if productErr == nil && product.IsActive {
				result := pricing.Evaluate(product.PricingRecord(), sub.UnitsPerPeriod)
				sub.PricePerPeriod = result.TotalPrice
				sub.PriceLevel = result.PriceLevel
			}

			if err := repo.Save(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: renew subscription")
			}
			renewed++
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionRenewed,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				OccurredAt:    now,
				Data: payloads.SubscriptionRenewedEvent{
					SubscriptionID: sub.ID,
					CustomerID:     sub.CustomerID,
					ProductName:    sub.ProductName,
					Units:          sub.UnitsPerPeriod,
					PricePerPeriod: sub.PricePerPeriod,
					PeriodStart:    start,
					PeriodEnd:      end,
				},
			})
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("renew subscription %s: %w", id, err))
		}
	}
	return renewed, errs
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Subscription, error) {
	sub, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load subscription")
	}
	return sub, nil
}

func (s *service) lock(ctx context.Context, repo Repository, id uuid.UUID) (*models.Subscription, error) {
	sub, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock subscription")
	}
	return sub, nil
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
