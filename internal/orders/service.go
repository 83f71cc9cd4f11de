package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aguasol/aguasol-backend/internal/customers"
	pricingsvc "github.com/aguasol/aguasol-backend/internal/pricing"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/outbox/payloads"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Service places orders and drives them through the delivery lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error)
	Track(ctx context.Context, code, phone string) (*TrackingDTO, error)
	List(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error)
	ChangeStatus(ctx context.Context, orderID uuid.UUID, input StatusChangeInput, actor *outbox.ActorRef) (*OrderDTO, error)
	ExpireGuestOrders(ctx context.Context, now time.Time, limit int) (int, error)
	Summary(ctx context.Context, from, to time.Time) (*SummaryDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// voucherIssuer creates and voids the vouchers backing "vale" orders.
type voucherIssuer interface {
	IssueForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
	VoidForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// subscriptionUnits draws and returns plan units for "suscripcion" orders.
type subscriptionUnits interface {
	ConsumeUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) (uuid.UUID, error)
	RestoreUnits(ctx context.Context, tx *gorm.DB, customerID, productID uuid.UUID, units int) error
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo          Repository
	Products      products.Repository
	Customers     customerReader
	Vouchers      voucherIssuer
	Subscriptions subscriptionUnits
	TxRunner      txRunner
	Outbox        outboxPublisher
	Ordering      config.OrderingConfig
	Clock         func() time.Time
}

type service struct {
	repo          Repository
	products      products.Repository
	customers     customerReader
	vouchers      voucherIssuer
	subscriptions subscriptionUnits
	tx            txRunner
	outbox        outboxPublisher
	deliveryFee   decimal.Decimal
	prefix        string
	guestTTL      time.Duration
	now           func() time.Time
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher issuer required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription units required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	fee, err := params.Ordering.DeliveryFeeAmount()
	if err != nil {
		return nil, err
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:          params.Repo,
		products:      params.Products,
		customers:     params.Customers,
		vouchers:      params.Vouchers,
		subscriptions: params.Subscriptions,
		tx:            params.TxRunner,
		outbox:        params.Outbox,
		deliveryFee:   fee,
		prefix:        params.Ordering.OrderNumberPrefix,
		guestTTL:      params.Ordering.GuestOrderTTL,
		now:           clock,
	}, nil
}

type contact struct {
	name     string
	phone    string
	address  string
	district *string
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment method")
	}
	if method.RequiresCustomer() && input.CustomerID == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "payment method %s requires a registered customer", method)
	}

	lines, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}
	who, err := s.resolveContact(ctx, input)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.buildOrder(ctx, tx, input, who, method, lines)
		if err != nil {
			return err
		}

		if method == enums.PaymentMethodSubscription {
			for _, item := range order.Items {
				subID, err := s.subscriptions.ConsumeUnits(ctx, tx, *order.CustomerID, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if order.SubscriptionID == nil {
					order.SubscriptionID = &subID
				}
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		if method == enums.PaymentMethodVoucher {
			if err := s.vouchers.IssueForOrder(ctx, tx, order); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         customerActor(order.CustomerID),
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CustomerID:    order.CustomerID,
				ContactName:   order.ContactName,
				PaymentMethod: order.PaymentMethod,
				Total:         order.Total,
				ItemCount:     len(order.Items),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*created, s.prefix)
	return &dto, nil
}

// buildOrder prices every line, reserves stock and allocates the order
// number inside tx.
func (s *service) buildOrder(ctx context.Context, tx *gorm.DB, input CreateOrderInput, who contact, method enums.PaymentMethod, lines []LineInput) (*models.Order, error) {
	productRepo := s.products.WithTx(tx)

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	rows, err := productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	orderID := uuid.New()
	order := &models.Order{
		ID:              orderID,
		CustomerID:      input.CustomerID,
		ContactName:     who.name,
		ContactPhone:    who.phone,
		DeliveryAddress: who.address,
		District:        who.district,
		Notes:           trimOptional(input.Notes),
		PaymentMethod:   method,
		Status:          enums.OrderStatusPending,
		DeliveryFee:     s.deliveryFee,
		Subtotal:        decimal.Zero,
		Savings:         decimal.Zero,
	}

	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", line.ProductID)
		}
		result := pricing.Evaluate(product.PricingRecord(), line.Quantity)

		reserved, err := productRepo.AdjustStock(ctx, product.ID, -line.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reserve stock")
		}
		if !reserved {
			return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "insufficient stock for %s", product.Name).
				WithDetails(map[string]any{"product_id": product.ID, "requested": line.Quantity})
		}

		order.Items = append(order.Items, models.OrderItem{
			ID:            uuid.New(),
			OrderID:       orderID,
			ProductID:     product.ID,
			ProductName:   product.Name,
			Quantity:      line.Quantity,
			UnitPrice:     result.UnitPrice,
			OriginalPrice: result.OriginalPrice,
			PriceLevel:    result.PriceLevel,
			Savings:       result.Savings,
			Subtotal:      result.TotalPrice,
		})
		order.Subtotal = order.Subtotal.Add(result.TotalPrice)
		order.Savings = order.Savings.Add(result.Savings)
	}
	order.Total = order.Subtotal.Add(order.DeliveryFee)

	number, err := s.repo.WithTx(tx).NextOrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: next order number")
	}
	order.OrderNumber = number
	return order, nil
}

// resolveContact fills delivery contact data. Registered customers default to
// their profile; guests must provide every field.
func (s *service) resolveContact(ctx context.Context, input CreateOrderInput) (contact, error) {
	who := contact{
		name:     strings.TrimSpace(input.ContactName),
		phone:    customers.NormalizePhone(input.ContactPhone),
		address:  strings.TrimSpace(input.DeliveryAddress),
		district: trimOptional(input.District),
	}

	if input.CustomerID != nil {
		customer, err := s.customers.FindByID(ctx, *input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return contact{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer account not found")
			}
			return contact{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load customer")
		}
		if !customer.IsActive {
			return contact{}, pkgerrors.New(pkgerrors.CodeForbidden, "customer account is inactive")
		}
		if who.name == "" {
			who.name = customer.Name
		}
		if who.phone == "" {
			who.phone = customer.Phone
		}
		if who.address == "" {
			who.address = customer.Address
		}
		if who.district == nil {
			who.district = customer.District
		}
		return who, nil
	}

	var missing []string
	if who.name == "" {
		missing = append(missing, "contact_name")
	}
	if who.phone == "" {
		missing = append(missing, "contact_phone")
	}
	if who.address == "" {
		missing = append(missing, "delivery_address")
	}
	if len(missing) > 0 {
		return contact{}, pkgerrors.New(pkgerrors.CodeValidation, "guest orders require contact details").
			WithDetails(map[string]any{"missing": missing})
	}
	return who, nil
}

// mergeLines folds repeated products into one line so tier thresholds apply
// to the combined quantity. Order of first appearance is kept.
func mergeLines(items []LineInput) ([]LineInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]LineInput, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if err := pricingsvc.ValidateQuantity(item.Quantity); err != nil {
			return nil, err
		}
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*order, s.prefix)
	return &dto, nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(*order, s.prefix)
	return &dto, nil
}

// Track looks an order up by its public code. The phone must match the one
// on the order; mismatches read as not found.
func (s *service) Track(ctx context.Context, code, phone string) (*TrackingDTO, error) {
	number, err := ParseCode(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order number")
	}
	phone = customers.NormalizePhone(phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if customers.NormalizePhone(order.ContactPhone) != phone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := trackingFromModel(*order, s.prefix)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters := ListFilters{
		CustomerID: input.CustomerID,
		From:       input.From,
		To:         input.To,
		Phone:      customers.NormalizePhone(input.Phone),
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}

	rows, err := s.repo.List(ctx, filters, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row, s.prefix))
	}
	page := pagination.Paginate(dtos, input.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (s *service) ChangeStatus(ctx context.Context, orderID uuid.UUID, input StatusChangeInput, actor *outbox.ActorRef) (*OrderDTO, error) {
	next, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if next == enums.OrderStatusExpired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "orders expire automatically")
	}
	reason := strings.TrimSpace(input.Reason)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock order")
		}
		from := order.Status
		if !from.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, next).
				WithDetails(map[string]any{"from": from, "to": next})
		}

		now := s.now().UTC()
		updates := map[string]any{"status": next}
		switch next {
		case enums.OrderStatusConfirmed:
			updates["confirmed_at"] = now
		case enums.OrderStatusInTransit:
			updates["dispatched_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCanceled:
			updates["canceled_at"] = now
			if reason != "" {
				updates["cancel_reason"] = reason
			}
		}

		ok, err := repo.UpdateStatus(ctx, order.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if next == enums.OrderStatusCanceled {
			if err := s.release(ctx, tx, order); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				From:        from,
				To:          next,
				Reason:      reason,
				ChangedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// ExpireGuestOrders moves pending guest orders older than the guest TTL to
// expirado. Each order commits on its own so one failure does not block the
// batch.
func (s *service) ExpireGuestOrders(ctx context.Context, now time.Time, limit int) (int, error) {
	if s.guestTTL <= 0 {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}
	cutoff := now.Add(-s.guestTTL)
	candidates, err := s.repo.FindExpirable(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find expirable orders")
	}

	var (
		expired int
		errs    error
	)
	for i := range candidates {
		order := candidates[i]
		moved := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusPending, map[string]any{
				"status":     enums.OrderStatusExpired,
				"expired_at": now.UTC(),
			})
			if err != nil || !ok {
				return err
			}
			if err := s.release(ctx, tx, &order); err != nil {
				return err
			}
			moved = true
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				OccurredAt:    now.UTC(),
				Data: payloads.OrderExpiredEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					CustomerID:  order.CustomerID,
					ExpiredAt:   now.UTC(),
					TTLHours:    int(s.guestTTL.Hours()),
				},
			})
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if moved {
			expired++
		}
	}
	return expired, errs
}

// release returns stock and undoes payment side effects of an order that
// will not be delivered.
func (s *service) release(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	productRepo := s.products.WithTx(tx)
	for _, item := range order.Items {
		if _, err := productRepo.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore stock")
		}
	}

	switch order.PaymentMethod {
	case enums.PaymentMethodVoucher:
		return s.vouchers.VoidForOrder(ctx, tx, order.ID)
	case enums.PaymentMethodSubscription:
		if order.CustomerID == nil {
			return nil
		}
		for _, item := range order.Items {
			if err := s.subscriptions.RestoreUnits(ctx, tx, *order.CustomerID, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *service) Summary(ctx context.Context, from, to time.Time) (*SummaryDTO, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	rows, err := s.repo.StatusTotals(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: order summary")
	}

	summary := &SummaryDTO{
		From:             from,
		To:               to,
		ByStatus:         make(map[enums.OrderStatus]int64, len(rows)),
		DeliveredRevenue: decimal.Zero,
		DeliveredSavings: decimal.Zero,
	}
	for _, row := range rows {
		summary.ByStatus[row.Status] = row.Count
		summary.TotalOrders += row.Count
		if row.Status == enums.OrderStatusDelivered {
			summary.DeliveredRevenue = row.Total
			summary.DeliveredSavings = row.Savings
		}
	}
	return summary, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func customerActor(customerID *uuid.UUID) *outbox.ActorRef {
	if customerID == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: *customerID, Role: enums.RoleCustomer}
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
