package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/internal/testdb"
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

type fixture struct {
	svc      Service
	conn     *gorm.DB
	products products.Repository
	customer models.Customer
	product  models.Product
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	f := &fixture{
		conn:     conn,
		products: products.NewRepository(conn),
		now:      time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC),
	}
	customerRepo := customers.NewRepository(conn)
	f.customer = models.Customer{ID: uuid.New(), Name: "Bodega Don Pepe", Phone: "955000111", Address: "Av. Grau 900", PasswordHash: "x", IsActive: true}
	require.NoError(t, customerRepo.Create(context.Background(), &f.customer))

	f.product = models.Product{Name: "Bidón 20L", Stock: 100, IsActive: true}
	f.product.ApplyPricingRecord(pricing.Record{
		UnitPrice: decimal.RequireFromString("10"),
		Tier1:     pricing.Tier{Price: decimal.RequireFromString("9"), MinQuantity: 5},
		Tier2:     pricing.Tier{Price: decimal.RequireFromString("8"), MinQuantity: 10},
	})
	require.NoError(t, f.products.Create(context.Background(), &f.product))

	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(conn),
		Products:          f.products,
		Customers:         customerRepo,
		TransactionRunner: db.NewFromConn(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
		Now:               func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, units int) *SubscriptionDTO {
	t.Helper()
	sub, err := f.svc.Create(context.Background(), CreateSubscriptionInput{
		CustomerID:     f.customer.ID,
		ProductID:      f.product.ID,
		UnitsPerPeriod: units,
	})
	require.NoError(t, err)
	return sub
}

func TestCreatePricesPlanWithTiers(t *testing.T) {
	f := newFixture(t)
	sub := f.create(t, 12)

	assert.Equal(t, pricing.LevelMayoreo2, sub.PriceLevel)
	assert.True(t, sub.PricePerPeriod.Equal(decimal.RequireFromString("96")), "price %s", sub.PricePerPeriod)
	assert.Equal(t, 12, sub.RemainingUnits)
	assert.Equal(t, enums.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd.UTC())

	_, err := f.svc.Create(context.Background(), CreateSubscriptionInput{CustomerID: f.customer.ID, ProductID: f.product.ID, UnitsPerPeriod: 4})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "duplicate plan: %v", err)

	_, err = f.svc.Create(context.Background(), CreateSubscriptionInput{CustomerID: uuid.New(), ProductID: f.product.ID, UnitsPerPeriod: 4})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "unknown customer: %v", err)

	_, err = f.svc.Create(context.Background(), CreateSubscriptionInput{CustomerID: f.customer.ID, ProductID: f.product.ID, UnitsPerPeriod: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "zero units: %v", err)
}

func TestConsumeAndRestoreUnits(t *testing.T) {
	f := newFixture(t)
	sub := f.create(t, 8)
	ctx := context.Background()

	var consumedFrom uuid.UUID
	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		consumedFrom, err = f.svc.ConsumeUnits(ctx, tx, f.customer.ID, f.product.ID, 5)
		return err
	}))
	assert.Equal(t, sub.ID, consumedFrom)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ConsumeUnits(ctx, tx, f.customer.ID, f.product.ID, 4)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "overdraw: %v", err)

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		return f.svc.RestoreUnits(ctx, tx, f.customer.ID, f.product.ID, 10)
	}))
	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.RemainingUnits)

	_, err = f.svc.Pause(ctx, sub.ID)
	require.NoError(t, err)
	err = f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ConsumeUnits(ctx, tx, f.customer.ID, f.product.ID, 1)
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "paused: %v", err)
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	sub := f.create(t, 4)
	ctx := context.Background()

	_, err := f.svc.Resume(ctx, sub.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	paused, err := f.svc.Pause(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPaused, paused.Status)
	assert.NotNil(t, paused.PausedAt)

	resumed, err := f.svc.Resume(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)

	canceled, err := f.svc.Cancel(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCanceled, canceled.Status)

	_, err = f.svc.Cancel(ctx, sub.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Pause(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := f.svc.List(ctx, ListSubscriptionsInput{CustomerID: &f.customer.ID, Status: "cancelada"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestRenewDueRollsPeriodAndRefills(t *testing.T) {
	f := newFixture(t)
	sub := f.create(t, 6)
	ctx := context.Background()

	require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ConsumeUnits(ctx, tx, f.customer.ID, f.product.ID, 6)
		return err
	}))

	n, err := f.svc.RenewDue(ctx, f.now.AddDate(0, 0, 10), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	later := sub.CurrentPeriodEnd.AddDate(0, 1, 5)
	n, err = f.svc.RenewDue(ctx, later, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.RemainingUnits)
	assert.True(t, got.CurrentPeriodEnd.After(later))
	assert.False(t, got.CurrentPeriodStart.After(later))

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventSubscriptionRenewed).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}
