// Package testdb opens in-memory SQLite databases carrying the tables the
// repositories touch. The schema mirrors pkg/migrate/migrations without the
// Postgres enum types and sequences.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS admins (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  email TEXT,
  address TEXT NOT NULL,
  district TEXT,
  document_number TEXT,
  password_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_customers_phone ON customers (phone)`,
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  unit_price TEXT NOT NULL,
  wholesale_price TEXT NOT NULL DEFAULT '0',
  wholesale_min_quantity INTEGER NOT NULL DEFAULT 0,
  wholesale_price_2 TEXT NOT NULL DEFAULT '0',
  wholesale_min_quantity_2 INTEGER NOT NULL DEFAULT 0,
  wholesale_price_3 TEXT NOT NULL DEFAULT '0',
  wholesale_min_quantity_3 INTEGER NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  customer_id TEXT,
  contact_name TEXT NOT NULL,
  contact_phone TEXT NOT NULL,
  delivery_address TEXT NOT NULL,
  district TEXT,
  notes TEXT,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pendiente',
  subtotal TEXT NOT NULL,
  delivery_fee TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  savings TEXT NOT NULL DEFAULT '0',
  subscription_id TEXT,
  cancel_reason TEXT,
  confirmed_at DATETIME,
  dispatched_at DATETIME,
  delivered_at DATETIME,
  canceled_at DATETIME,
  expired_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price TEXT NOT NULL,
  original_price TEXT NOT NULL,
  price_level TEXT NOT NULL,
  savings TEXT NOT NULL DEFAULT '0',
  subtotal TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS voucher_settlements (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  billing_month TEXT NOT NULL,
  voucher_count INTEGER NOT NULL,
  total TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  reference TEXT,
  settled_by TEXT NOT NULL,
  settled_at DATETIME NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS vouchers (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  amount TEXT NOT NULL,
  billing_month TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pendiente',
  settlement_id TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  units_per_period INTEGER NOT NULL,
  remaining_units INTEGER NOT NULL CHECK (remaining_units >= 0),
  price_per_period TEXT NOT NULL,
  price_level TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'activa',
  current_period_start DATETIME NOT NULL,
  current_period_end DATETIME NOT NULL,
  paused_at DATETIME,
  canceled_at DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  audience TEXT NOT NULL,
  customer_id TEXT,
  order_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
}

// Open returns a private in-memory database named after the test with the
// full schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
