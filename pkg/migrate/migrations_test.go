package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aguasol/aguasol-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestProductsMigrationCarriesTierColumns(t *testing.T) {
	content := readMigration(t, "create_products_table")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"unit_price numeric(10,2) NOT NULL CHECK (unit_price > 0)",
		"wholesale_min_quantity integer NOT NULL DEFAULT 0",
		"wholesale_price_2 numeric(10,2)",
		"wholesale_min_quantity_3 integer",
		"DROP TABLE IF EXISTS products",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders_tables")
	checks := []string{
		"CREATE SEQUENCE IF NOT EXISTS order_number_seq",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"order_id uuid NOT NULL REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS order_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEnumMigrationMatchesDomainCodes(t *testing.T) {
	content := readMigration(t, "create_enum_types")
	for _, code := range []string{"'pendiente'", "'en_camino'", "'contraentrega'", "'suscripcion'", "'pausada'", "'anulado'"} {
		if !strings.Contains(content, code) {
			t.Errorf("missing enum value %s", code)
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Zones")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_delivery_zones.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestValidateRejectsMisorderedSections(t *testing.T) {
	cases := map[string]string{
		"20260201000000_down_first.sql": "-- +goose Down\n-- +goose Up\n",
		"20260201000001_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := migrate.ValidateDir(dir); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateSQLMigrationOrdersAfterFutureVersions(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "29991231235959_from_the_future.sql")
	if err := os.WriteFile(future, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "zonas de reparto")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "30000101000000_zonas_de_reparto.sql" {
		t.Fatalf("expected version after the newest file, got %s", filepath.Base(path))
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDir(t *testing.T) {
	embedded, err := migrate.EmbeddedFiles()
	if err != nil {
		t.Fatalf("list embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded %d migrations, found %d on disk", len(embedded), len(onDisk))
	}
}

func TestSourceGuards(t *testing.T) {
	ctx := context.Background()
	if got := migrate.Embedded().String(); got != "embedded" {
		t.Fatalf("unexpected source name %q", got)
	}
	if err := migrate.ToVersion(ctx, nil, migrate.Embedded(), "latest"); err == nil || !strings.Contains(err.Error(), "invalid version") {
		t.Fatalf("expected version parse error, got %v", err)
	}
	if _, err := migrate.Up(ctx, nil, migrate.Dir("migrations")); err == nil {
		t.Fatal("expected error without a database")
	}
	if _, _, err := migrate.Versions(ctx, nil, migrate.Source{}); err == nil {
		t.Fatal("expected error for nil db and empty source")
	}
}
