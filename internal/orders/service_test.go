package orders

import (
	"context"
	"testing"
	"time"

	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/internal/testdb"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubVouchers struct {
	issued  []uuid.UUID
	voided  []uuid.UUID
	voidErr error
}

func (s *stubVouchers) IssueForOrder(_ context.Context, _ *gorm.DB, order *models.Order) error {
	s.issued = append(s.issued, order.ID)
	return nil
}

func (s *stubVouchers) VoidForOrder(_ context.Context, _ *gorm.DB, orderID uuid.UUID) error {
	if s.voidErr != nil {
		return s.voidErr
	}
	s.voided = append(s.voided, orderID)
	return nil
}

type stubUnits struct {
	available int
	subID     uuid.UUID
	restored  int
}

func (s *stubUnits) ConsumeUnits(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, units int) (uuid.UUID, error) {
	if units > s.available {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "not enough subscription units")
	}
	s.available -= units
	return s.subID, nil
}

func (s *stubUnits) RestoreUnits(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, units int) error {
	s.restored += units
	s.available += units
	return nil
}

type fixture struct {
	svc       Service
	conn      *gorm.DB
	products  products.Repository
	customers customers.Repository
	vouchers  *stubVouchers
	units     *stubUnits
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	f := &fixture{
		conn:      conn,
		products:  products.NewRepository(conn),
		customers: customers.NewRepository(conn),
		vouchers:  &stubVouchers{},
		units:     &stubUnits{available: 10, subID: uuid.New()},
		now:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		Products:      f.products,
		Customers:     f.customers,
		Vouchers:      f.vouchers,
		Subscriptions: f.units,
		TxRunner:      db.NewFromConn(conn),
		Outbox:        outbox.NewService(outbox.NewRepository(conn), nil),
		Ordering: config.OrderingConfig{
			DeliveryFee:       "3.00",
			GuestOrderTTL:     24 * time.Hour,
			OrderNumberPrefix: "AS",
		},
		Clock: func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) product(t *testing.T, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "Bidón 20L", Stock: stock, IsActive: true}
	p.ApplyPricingRecord(pricing.Record{
		UnitPrice: decimal.RequireFromString("10.00"),
		Tier1:     pricing.Tier{Price: decimal.RequireFromString("9.00"), MinQuantity: 5},
	})
	require.NoError(t, f.products.Create(context.Background(), &p))
	return p
}

func (f *fixture) customer(t *testing.T) models.Customer {
	t.Helper()
	c := models.Customer{
		ID:           uuid.New(),
		Name:         "Rosa Quispe",
		Phone:        "987654321",
		Address:      "Av. Los Álamos 123",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, f.customers.Create(context.Background(), &c))
	return c
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func guestInput(productID uuid.UUID, qty int) CreateOrderInput {
	return CreateOrderInput{
		ContactName:     "Juan Pérez",
		ContactPhone:    "999 111 222",
		DeliveryAddress: "Jr. Lima 45",
		PaymentMethod:   "Yape",
		Items:           []LineInput{{ProductID: productID, Quantity: qty}},
	}
}

func TestCreateGuestOrderPricesLinesAndReservesStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)

	order, err := f.svc.Create(context.Background(), guestInput(p.ID, 6))
	require.NoError(t, err)

	assert.Equal(t, int64(firstOrderNumber), order.OrderNumber)
	assert.Equal(t, "AS-001000", order.Code)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentMethodYape, order.PaymentMethod)
	assert.Equal(t, "999111222", order.ContactPhone)
	require.Len(t, order.Items, 1)
	line := order.Items[0]
	assert.Equal(t, pricing.LevelMayoreo1, line.PriceLevel)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("9")))
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("54")))
	assert.True(t, order.Savings.Equal(decimal.RequireFromString("6")))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("57")), "total %s", order.Total)

	assert.Equal(t, 14, f.stock(t, p.ID))
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderCreated))

	second, err := f.svc.Create(context.Background(), guestInput(p.ID, 1))
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber+1, second.OrderNumber)
}

func TestCreateMergesRepeatedProducts(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	input := guestInput(p.ID, 3)
	input.Items = append(input.Items, LineInput{ProductID: p.ID, Quantity: 2})

	order, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, pricing.LevelMayoreo1, order.Items[0].PriceLevel)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)

	missing := guestInput(p.ID, 1)
	missing.DeliveryAddress = " "
	_, err := f.svc.Create(context.Background(), missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "missing contact: %v", err)

	badMethod := guestInput(p.ID, 1)
	badMethod.PaymentMethod = "bitcoin"
	_, err = f.svc.Create(context.Background(), badMethod)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "bad method: %v", err)

	vale := guestInput(p.ID, 1)
	vale.PaymentMethod = "vale"
	_, err = f.svc.Create(context.Background(), vale)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "guest vale: %v", err)

	zero := guestInput(p.ID, 0)
	_, err = f.svc.Create(context.Background(), zero)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero quantity: %v", err)

	unknown := guestInput(uuid.New(), 1)
	_, err = f.svc.Create(context.Background(), unknown)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "unknown product: %v", err)
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 2)

	_, err := f.svc.Create(context.Background(), guestInput(p.ID, 3))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Equal(t, int64(0), f.outboxCount(t, enums.EventOrderCreated))
}

func TestCreateRegisteredVoucherOrder(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	c := f.customer(t)

	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:    &c.ID,
		PaymentMethod: "vale",
		Items:         []LineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, c.Name, order.ContactName)
	assert.Equal(t, c.Address, order.DeliveryAddress)
	assert.Equal(t, "Vale", order.PaymentLabel)
	assert.Equal(t, []uuid.UUID{order.ID}, f.vouchers.issued)

	_, err = f.svc.ChangeStatus(context.Background(), order.ID, StatusChangeInput{Status: "cancelado", Reason: "cliente ausente"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{order.ID}, f.vouchers.voided)
	assert.Equal(t, 20, f.stock(t, p.ID))
}

func TestCancelVoucherOrderWithSettledVouchersIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	c := f.customer(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, CreateOrderInput{
		CustomerID:    &c.ID,
		PaymentMethod: "vale",
		Items:         []LineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	f.vouchers.voidErr = pkgerrors.New(pkgerrors.CodeStateConflict, "order vouchers already settled")
	_, err = f.svc.ChangeStatus(ctx, order.ID, StatusChangeInput{Status: "cancelado"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "cancel after settle: %v", err)

	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.Nil(t, got.CanceledAt)
	assert.Equal(t, 18, f.stock(t, p.ID), "stock stays reserved")
	assert.Zero(t, f.outboxCount(t, enums.EventOrderStatusChanged))
}

func TestCreateSubscriptionOrderConsumesUnits(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	c := f.customer(t)

	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:    &c.ID,
		PaymentMethod: "suscripcion",
		Items:         []LineInput{{ProductID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.NotNil(t, order.SubscriptionID)
	assert.Equal(t, f.units.subID, *order.SubscriptionID)
	assert.Equal(t, 6, f.units.available)

	_, err = f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:    &c.ID,
		PaymentMethod: "suscripcion",
		Items:         []LineInput{{ProductID: p.ID, Quantity: 7}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	assert.Equal(t, 16, f.stock(t, p.ID))
}

func TestChangeStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	order, err := f.svc.Create(context.Background(), guestInput(p.ID, 1))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.svc.ChangeStatus(ctx, order.ID, StatusChangeInput{Status: "entregado"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "skip ahead: %v", err)

	for _, status := range []string{"confirmado", "en_camino", "entregado"} {
		_, err = f.svc.ChangeStatus(ctx, order.ID, StatusChangeInput{Status: status}, nil)
		require.NoError(t, err, status)
	}
	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, got.Status)
	assert.NotNil(t, got.ConfirmedAt)
	assert.NotNil(t, got.DispatchedAt)
	assert.NotNil(t, got.DeliveredAt)
	assert.Equal(t, int64(3), f.outboxCount(t, enums.EventOrderStatusChanged))

	_, err = f.svc.ChangeStatus(ctx, order.ID, StatusChangeInput{Status: "cancelado"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "terminal: %v", err)

	_, err = f.svc.ChangeStatus(ctx, order.ID, StatusChangeInput{Status: "expirado"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "manual expire: %v", err)

	_, err = f.svc.ChangeStatus(ctx, uuid.New(), StatusChangeInput{Status: "confirmado"}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "missing: %v", err)
}

func TestTrackRequiresMatchingPhone(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	order, err := f.svc.Create(context.Background(), guestInput(p.ID, 2))
	require.NoError(t, err)

	tracked, err := f.svc.Track(context.Background(), order.Code, "999-111-222")
	require.NoError(t, err)
	assert.Equal(t, order.Code, tracked.Code)
	assert.Equal(t, "Yape", tracked.PaymentLabel)
	require.Len(t, tracked.Items, 1)

	_, err = f.svc.Track(context.Background(), "1000", "900000000")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "wrong phone: %v", err)

	_, err = f.svc.Track(context.Background(), "AS-", "999111222")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "no digits: %v", err)
}

func TestGetForCustomerHidesOtherOrders(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	c := f.customer(t)
	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		CustomerID:    &c.ID,
		PaymentMethod: "efectivo",
		Items:         []LineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.GetForCustomer(context.Background(), c.ID, order.ID)
	require.NoError(t, err)
	_, err = f.svc.GetForCustomer(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := f.svc.List(context.Background(), ListOrdersInput{CustomerID: &c.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, order.ID, page.Items[0].ID)
}

func TestExpireGuestOrders(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	stale, err := f.svc.Create(context.Background(), guestInput(p.ID, 2))
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)
	_, err = f.svc.Create(context.Background(), guestInput(p.ID, 1))
	require.NoError(t, err)

	n, err := f.svc.ExpireGuestOrders(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusExpired, got.Status)
	assert.NotNil(t, got.ExpiredAt)
	assert.Equal(t, 19, f.stock(t, p.ID))
	assert.Equal(t, int64(1), f.outboxCount(t, enums.EventOrderExpired))
}

func TestExpireGuestOrdersCountsCommittedOnly(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	stale, err := f.svc.Create(context.Background(), guestInput(p.ID, 2))
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)
	require.NoError(t, f.conn.Migrator().DropTable(&models.OutboxEvent{}))

	n, err := f.svc.ExpireGuestOrders(context.Background(), time.Now().UTC(), 10)
	require.Error(t, err)
	assert.Zero(t, n)

	got, err := f.svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status)
	assert.Equal(t, 18, f.stock(t, p.ID))
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, 20)
	ctx := context.Background()
	delivered, err := f.svc.Create(ctx, guestInput(p.ID, 2))
	require.NoError(t, err)
	for _, status := range []string{"confirmado", "en_camino", "entregado"} {
		_, err = f.svc.ChangeStatus(ctx, delivered.ID, StatusChangeInput{Status: status}, nil)
		require.NoError(t, err)
	}
	_, err = f.svc.Create(ctx, guestInput(p.ID, 1))
	require.NoError(t, err)

	from := time.Now().UTC().Add(-time.Hour)
	summary, err := f.svc.Summary(ctx, from, from.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalOrders)
	assert.Equal(t, int64(1), summary.ByStatus[enums.OrderStatusDelivered])
	assert.Equal(t, int64(1), summary.ByStatus[enums.OrderStatusPending])
	assert.True(t, summary.DeliveredRevenue.Equal(decimal.RequireFromString("23")), "revenue %s", summary.DeliveredRevenue)

	_, err = f.svc.Summary(ctx, from, from)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseCode(t *testing.T) {
	cases := map[string]int64{"AS-001042": 1042, "1042": 1042, " as001000 ": 1000}
	for raw, want := range cases {
		got, err := ParseCode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "AS-", "AS-000000"} {
		_, err := ParseCode(raw)
		assert.Error(t, err, raw)
	}
	assert.Equal(t, "AS-000007", FormatCode("AS", 7))
	assert.Equal(t, "000007", FormatCode("", 7))
}
