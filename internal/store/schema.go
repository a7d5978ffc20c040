package store

import (
	"context"
	"fmt"
)

// Bootstrap creates the schema if it does not exist. Production
// deployments run real migrations; this keeps local and test
// environments self-contained.
func (s *Store) Bootstrap(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			tax_rate_bps INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			loyalty_points BIGINT NOT NULL DEFAULT 0,
			total_lifetime_value BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ingredients (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id BIGSERIAL PRIMARY KEY,
			location_id BIGINT NOT NULL REFERENCES locations(id),
			name TEXT NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			available BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS recipe_items (
			menu_item_id BIGINT NOT NULL REFERENCES menu_items(id),
			ingredient_id BIGINT NOT NULL REFERENCES ingredients(id),
			quantity NUMERIC(12,4) NOT NULL CHECK (quantity > 0),
			PRIMARY KEY (menu_item_id, ingredient_id)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_lots (
			id BIGSERIAL PRIMARY KEY,
			location_id BIGINT NOT NULL REFERENCES locations(id),
			ingredient_id BIGINT NOT NULL REFERENCES ingredients(id),
			lot_number TEXT NOT NULL,
			current_stock NUMERIC(12,4) NOT NULL CHECK (current_stock >= 0),
			minimum_threshold NUMERIC(12,4) NOT NULL DEFAULT 0,
			expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (location_id, ingredient_id, lot_number)
		)`,
		`CREATE TABLE IF NOT EXISTS promotions (
			id BIGSERIAL PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			discount_type TEXT NOT NULL,
			discount_value BIGINT NOT NULL CHECK (discount_value >= 0),
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			usage_limit INT NOT NULL,
			times_used INT NOT NULL DEFAULT 0 CHECK (times_used <= usage_limit),
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			location_id BIGINT NOT NULL REFERENCES locations(id),
			customer_id BIGINT REFERENCES customers(id),
			employee_id BIGINT,
			promotion_id BIGINT REFERENCES promotions(id),
			order_type TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			subtotal BIGINT NOT NULL CHECK (subtotal >= 0),
			tax_amount BIGINT NOT NULL CHECK (tax_amount >= 0),
			tip_amount BIGINT NOT NULL CHECK (tip_amount >= 0),
			discount_amount BIGINT NOT NULL CHECK (discount_amount >= 0),
			total_amount BIGINT NOT NULL CHECK (total_amount >= 0),
			status TEXT NOT NULL,
			idempotency_key TEXT UNIQUE,
			business_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (total_amount = subtotal + tax_amount + tip_amount - discount_amount)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			menu_item_id BIGINT NOT NULL REFERENCES menu_items(id),
			quantity INT NOT NULL CHECK (quantity >= 1),
			unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
			line_total BIGINT NOT NULL CHECK (line_total = quantity * unit_price)
		)`,
		`CREATE TABLE IF NOT EXISTS lot_consumptions (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id),
			lot_id BIGINT NOT NULL,
			ingredient_id BIGINT NOT NULL REFERENCES ingredients(id),
			quantity NUMERIC(12,4) NOT NULL CHECK (quantity > 0)
		)`,
		`CREATE TABLE IF NOT EXISTS loyalty_transactions (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			order_id BIGINT REFERENCES orders(id),
			type TEXT NOT NULL,
			points BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS daily_sales_summary (
			location_id BIGINT NOT NULL REFERENCES locations(id),
			business_date DATE NOT NULL,
			total_revenue BIGINT NOT NULL DEFAULT 0,
			total_orders BIGINT NOT NULL DEFAULT 0,
			total_customers BIGINT NOT NULL DEFAULT 0,
			average_order_value BIGINT NOT NULL DEFAULT 0,
			computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location_id, business_date)
		)`,
		`CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_location_date ON orders (location_id, business_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_lots_location_ingredient ON inventory_lots (location_id, ingredient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loyalty_customer ON loyalty_transactions (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_consumptions_order ON lot_consumptions (order_id)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
