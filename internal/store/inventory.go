package store

import (
	"context"
	"fmt"

	"chainpos/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LockLotsForIngredients reads all lots for the demanded ingredients at
// one location under row locks, ordered earliest-expiry first so the
// allocation planner consumes perishables before stable stock. Lots
// without an expiry date sort last.
func (s *Store) LockLotsForIngredients(ctx context.Context, tx *sqlx.Tx, locationID int64, ingredientIDs []int64) ([]models.InventoryLot, error) {
	if len(ingredientIDs) == 0 {
		return []models.InventoryLot{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM inventory_lots
		WHERE location_id = ? AND ingredient_id IN (?)
		ORDER BY expires_at ASC NULLS LAST, id ASC
		FOR UPDATE`, locationID, ingredientIDs)
	if err != nil {
		return nil, err
	}
	query = tx.Rebind(query)

	var lots []models.InventoryLot
	err = tx.SelectContext(ctx, &lots, query, args...)
	return lots, err
}

// ApplyLotDrawTx decrements one lot and records the consumption so the
// draw can be reversed lot-for-lot on cancellation. The stock guard in
// the WHERE clause keeps current_stock non-negative even if the caller's
// plan went stale.
func (s *Store) ApplyLotDrawTx(ctx context.Context, tx *sqlx.Tx, orderID, lotID, ingredientID int64, qty decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_lots
		 SET current_stock = current_stock - $1, updated_at = NOW()
		 WHERE id = $2 AND current_stock >= $1`,
		qty, lotID)
	if err != nil {
		return fmt.Errorf("failed to decrement lot %d: %w", lotID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return fmt.Errorf("lot %d stock changed under us", lotID)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO lot_consumptions (order_id, lot_id, ingredient_id, quantity) VALUES ($1, $2, $3, $4)",
		orderID, lotID, ingredientID, qty)
	if err != nil {
		return fmt.Errorf("failed to record consumption for lot %d: %w", lotID, err)
	}
	return nil
}

// GetConsumptionsByOrderTx reads an order's consumption records under
// row locks for reversal
func (s *Store) GetConsumptionsByOrderTx(ctx context.Context, tx *sqlx.Tx, orderID int64) ([]models.LotConsumption, error) {
	var consumptions []models.LotConsumption
	err := tx.SelectContext(ctx, &consumptions,
		"SELECT * FROM lot_consumptions WHERE order_id = $1 ORDER BY id FOR UPDATE", orderID)
	return consumptions, err
}

// HasConsumptionsTx reports whether an order already decremented stock
func (s *Store) HasConsumptionsTx(ctx context.Context, tx *sqlx.Tx, orderID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM lot_consumptions WHERE order_id = $1)", orderID)
	return exists, err
}

// CreditLotTx adds stock back to a lot. Returns false when the lot row
// no longer exists.
func (s *Store) CreditLotTx(ctx context.Context, tx *sqlx.Tx, lotID int64, qty decimal.Decimal) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_lots
		 SET current_stock = current_stock + $1, updated_at = NOW()
		 WHERE id = $2`,
		qty, lotID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// CreateAdjustmentLotTx creates a fresh lot to hold credited stock when
// the original lot row is gone
func (s *Store) CreateAdjustmentLotTx(ctx context.Context, tx *sqlx.Tx, lot *models.InventoryLot) error {
	return tx.GetContext(ctx, &lot.ID,
		`INSERT INTO inventory_lots (location_id, ingredient_id, lot_number, current_stock, minimum_threshold, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		lot.LocationID, lot.IngredientID, lot.LotNumber, lot.CurrentStock,
		lot.MinimumThreshold, lot.ExpiresAt)
}

// DeleteConsumptionsTx removes an order's consumption records after a
// reversal so cancelling twice cannot credit twice
func (s *Store) DeleteConsumptionsTx(ctx context.Context, tx *sqlx.Tx, orderID int64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM lot_consumptions WHERE order_id = $1", orderID)
	return err
}

// GetLotsForIngredient retrieves lots for one ingredient at a location
// (read-only inventory view)
func (s *Store) GetLotsForIngredient(ctx context.Context, locationID, ingredientID int64) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := s.db.SelectContext(ctx, &lots,
		`SELECT * FROM inventory_lots
		 WHERE location_id = $1 AND ingredient_id = $2
		 ORDER BY expires_at ASC NULLS LAST, id ASC`,
		locationID, ingredientID)
	return lots, err
}
