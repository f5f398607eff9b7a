package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestInitMigrationCoversSchema(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	var initSQL string
	for _, e := range entries {
		if strings.Contains(e.Name(), "init_inventory_schema") {
			b, err := os.ReadFile(filepath.Join("migrations", e.Name()))
			if err != nil {
				t.Fatalf("read init migration: %v", err)
			}
			initSQL = string(b)
		}
	}
	if initSQL == "" {
		t.Fatal("init_inventory_schema migration missing")
	}

	for _, table := range []string{
		"units", "products", "stock_entries", "suppliers",
		"customers", "purchase_events", "sale_events",
	} {
		if !strings.Contains(initSQL, "CREATE TABLE "+table) {
			t.Fatalf("init migration missing table %s", table)
		}
	}
	if !strings.Contains(initSQL, "quantity_on_hand integer NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0)") {
		t.Fatal("stock_entries must carry the non-negative check")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Supplier Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_supplier_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration invalid: %v", err)
	}
}
