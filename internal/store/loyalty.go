package store

import (
	"context"

	"chainpos/internal/models"

	"github.com/jmoiron/sqlx"
)

// AppendLoyaltyTransactionTx appends one ledger entry. The ledger is
// append-only: no update or delete exists for these rows. Corrections
// are new Adjustment entries, never edits.
func (s *Store) AppendLoyaltyTransactionTx(ctx context.Context, tx *sqlx.Tx, ltx *models.LoyaltyTransaction) error {
	return tx.GetContext(ctx, &ltx.ID,
		`INSERT INTO loyalty_transactions (customer_id, order_id, type, points)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		ltx.CustomerID, ltx.OrderID, ltx.Type, ltx.Points)
}

// CreditCustomerTx adds earned points and lifetime value to a customer
// in the same transaction that appends the ledger entry, keeping the
// materialized balance equal to the ledger sum.
func (s *Store) CreditCustomerTx(ctx context.Context, tx *sqlx.Tx, customerID, points, spend int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE customers
		 SET loyalty_points = loyalty_points + $1, total_lifetime_value = total_lifetime_value + $2
		 WHERE id = $3`,
		points, spend, customerID)
	return err
}

// DebitCustomerPointsTx subtracts redeemed points, guarded so the
// balance can never go negative. Returns false when the guard fails.
func (s *Store) DebitCustomerPointsTx(ctx context.Context, tx *sqlx.Tx, customerID, points int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE customers SET loyalty_points = loyalty_points - $1 WHERE id = $2 AND loyalty_points >= $1",
		points, customerID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetLoyaltyTransactions retrieves a customer's ledger, chronologically
func (s *Store) GetLoyaltyTransactions(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	var txs []models.LoyaltyTransaction
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM loyalty_transactions WHERE customer_id = $1 ORDER BY id", customerID)
	return txs, err
}
