package bootstrap

import (
	"fmt"

	"github.com/aguasol/aguasol-backend/internal/customers"
	"github.com/aguasol/aguasol-backend/internal/orders"
	"github.com/aguasol/aguasol-backend/internal/products"
	"github.com/aguasol/aguasol-backend/internal/subscriptions"
	"github.com/aguasol/aguasol-backend/internal/vouchers"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/outbox"
)

// Domain is the order lifecycle graph shared by the API and the cron worker.
type Domain struct {
	Outbox        *outbox.Service
	OutboxRepo    *outbox.Repository
	Products      products.Repository
	Customers     customers.Repository
	Vouchers      vouchers.Service
	Subscriptions subscriptions.Service
	Orders        orders.Service
}

// BuildDomain wires repositories and services over one database client.
func BuildDomain(client *db.Client, ordering config.OrderingConfig, logg *logger.Logger) (*Domain, error) {
	gdb := client.DB()
	d := &Domain{
		OutboxRepo: outbox.NewRepository(gdb),
		Products:   products.NewRepository(gdb),
		Customers:  customers.NewRepository(gdb),
	}
	d.Outbox = outbox.NewService(d.OutboxRepo, logg)

	var err error
	if d.Vouchers, err = vouchers.NewService(vouchers.NewRepository(gdb), client, d.Outbox); err != nil {
		return nil, fmt.Errorf("voucher service: %w", err)
	}
	d.Subscriptions, err = subscriptions.NewService(subscriptions.ServiceParams{
		Repo:              subscriptions.NewRepository(gdb),
		Products:          d.Products,
		Customers:         d.Customers,
		TransactionRunner: client,
		Outbox:            d.Outbox,
	})
	if err != nil {
		return nil, fmt.Errorf("subscription service: %w", err)
	}
	d.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:          orders.NewRepository(gdb),
		Products:      d.Products,
		Customers:     d.Customers,
		Vouchers:      d.Vouchers,
		Subscriptions: d.Subscriptions,
		TxRunner:      client,
		Outbox:        d.Outbox,
		Ordering:      ordering,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	return d, nil
}
