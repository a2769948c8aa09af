package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (status IN ('pending', 'accepted', 'rejected', 'ready', 'dispatched', 'delivered', 'canceled'))",
		"CHECK (payment_method IN ('cash', 'upi', 'card'))",
		"CHECK (delivery_mode IN ('pickup', 'self_delivery', 'bulk_delivery', 'townie_ship'))",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSettlementsMigrationIsIdempotentPerOrder(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_settlements.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no settlements migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}

	if !strings.Contains(string(data), "CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_order_id") {
		t.Errorf("settlements migration must enforce one split per order")
	}
}
