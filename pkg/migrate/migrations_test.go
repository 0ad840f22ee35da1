package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/digitos-team/masala-software/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Files(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := fs.ReadFile(migrate.Files(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestStockMigrationsGuardAgainstNegativeStock(t *testing.T) {
	products := readMigration(t, "create_products")
	ledger := readMigration(t, "create_owner_stock")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock >= 0)",
		"DROP TABLE IF EXISTS products",
	} {
		if !strings.Contains(products, sub) {
			t.Errorf("products migration missing %q", sub)
		}
	}
	for _, sub := range []string{
		"CHECK (stock >= 0)",
		"ON owner_stock (owner_id, product_id)",
	} {
		if !strings.Contains(ledger, sub) {
			t.Errorf("owner_stock migration missing %q", sub)
		}
	}
}

func TestOrderAndPaymentMigrationsCarryUniqueness(t *testing.T) {
	orders := readMigration(t, "create_orders")
	payments := readMigration(t, "create_payments")

	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_invoice_number",
		"amount_paid_cents <= grand_total_cents",
		"CREATE TABLE IF NOT EXISTS order_sequences",
		"ON DELETE CASCADE",
	} {
		if !strings.Contains(orders, sub) {
			t.Errorf("orders migration missing %q", sub)
		}
	}
	if !strings.Contains(payments, "CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction_id") {
		t.Errorf("payments migration missing transaction id unique index")
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.Validate(migrate.Files()); err != nil {
		t.Fatalf("embedded migrations failed validation: %v", err)
	}
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("on-disk migrations failed validation: %v", err)
	}

	embedded, err := fs.Glob(migrate.Files(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) {
		t.Fatalf("embedded %d files, disk has %d", len(embedded), len(onDisk))
	}
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20261001090100")
	if err != nil || v != 20261001090100 {
		t.Fatalf("unexpected %d, %v", v, err)
	}
	for _, bad := range []string{"", "2026", "2026100109010x", "202610010901000"} {
		if _, err := migrate.ParseVersion(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestCreateSQLMigrationThenValidate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 18, 7, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20261018073000_add_delivery_notes.sql" {
		t.Fatalf("unexpected filename %q", path)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add delivery notes", now); err == nil {
		t.Fatal("expected same-second duplicate to be refused")
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write bad migration: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}
