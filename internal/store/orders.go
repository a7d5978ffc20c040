package store

import (
	"context"
	"database/sql"
	"fmt"

	"chainpos/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrderWithItemsTx persists an order and its items inside the
// caller's transaction so they commit atomically with any promotion
// reservation. The order and every item get their generated IDs back.
func (s *Store) CreateOrderWithItemsTx(ctx context.Context, tx *sqlx.Tx, order *models.Order, items []models.OrderItem) error {
	query := `
		INSERT INTO orders (location_id, customer_id, employee_id, promotion_id,
			order_type, payment_method, subtotal, tax_amount, tip_amount,
			discount_amount, total_amount, status, idempotency_key, business_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::date)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.LocationID, order.CustomerID, order.EmployeeID, order.PromotionID,
		order.OrderType, order.PaymentMethod, order.Subtotal, order.TaxAmount,
		order.TipAmount, order.DiscountAmount, order.TotalAmount, order.Status,
		order.IdempotencyKey, dateKey(order.BusinessDate)); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			items[i].OrderID, items[i].MenuItemID, items[i].Quantity,
			items[i].UnitPrice, items[i].LineTotal); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// LockOrderTx reads an order under a row lock so a transition and its
// side effects see a stable status for the whole transaction
func (s *Store) LockOrderTx(ctx context.Context, tx *sqlx.Tx, orderID int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %d", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatusTx moves an order from one status to another inside
// tx. The WHERE guard makes the check-and-set atomic: zero rows means a
// concurrent transition won.
func (s *Store) UpdateOrderStatusTx(ctx context.Context, tx *sqlx.Tx, orderID int64, from, to string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetOrdersByCustomerID retrieves orders for a customer
func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC", customerID)
	return orders, err
}
