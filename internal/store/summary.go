package store

import (
	"context"
	"database/sql"
	"time"

	"chainpos/internal/models"
)

// dateLayout renders a business date for DATE column parameters.
// Formatting on the client side keeps the date comparison out of the
// server's session time zone, which would otherwise shift boundary
// orders into the wrong day on a non-UTC Postgres.
const dateLayout = "2006-01-02"

// dateKey formats a business date as its DATE column value
func dateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// salesAggregate mirrors the rollup query's result row
type salesAggregate struct {
	TotalRevenue   int64 `db:"total_revenue"`
	TotalOrders    int64 `db:"total_orders"`
	TotalCustomers int64 `db:"total_customers"`
}

// AggregateCompletedOrders computes the sales aggregate for one
// (location, business_date) from completed orders only
func (s *Store) AggregateCompletedOrders(ctx context.Context, locationID int64, businessDate time.Time) (revenue, orders, customers int64, err error) {
	var agg salesAggregate
	err = s.db.GetContext(ctx, &agg, `
		SELECT
			COALESCE(SUM(total_amount), 0) AS total_revenue,
			COUNT(*) AS total_orders,
			COUNT(DISTINCT customer_id) AS total_customers
		FROM orders
		WHERE location_id = $1 AND business_date = $2::date AND status = $3`,
		locationID, dateKey(businessDate), models.OrderStatusCompleted)
	if err != nil {
		return 0, 0, 0, err
	}
	return agg.TotalRevenue, agg.TotalOrders, agg.TotalCustomers, nil
}

// UpsertDailySummary writes the summary row keyed by
// (location_id, business_date); the unique key makes re-runs idempotent
func (s *Store) UpsertDailySummary(ctx context.Context, summary *models.DailySalesSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_sales_summary
			(location_id, business_date, total_revenue, total_orders, total_customers, average_order_value, computed_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, NOW())
		ON CONFLICT (location_id, business_date) DO UPDATE SET
			total_revenue = EXCLUDED.total_revenue,
			total_orders = EXCLUDED.total_orders,
			total_customers = EXCLUDED.total_customers,
			average_order_value = EXCLUDED.average_order_value,
			computed_at = NOW()`,
		summary.LocationID, dateKey(summary.BusinessDate), summary.TotalRevenue,
		summary.TotalOrders, summary.TotalCustomers, summary.AverageOrderValue)
	return err
}

// GetDailySummary retrieves one summary row
func (s *Store) GetDailySummary(ctx context.Context, locationID int64, businessDate time.Time) (*models.DailySalesSummary, error) {
	var summary models.DailySalesSummary
	err := s.db.GetContext(ctx, &summary,
		"SELECT * FROM daily_sales_summary WHERE location_id = $1 AND business_date = $2::date",
		locationID, dateKey(businessDate))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
