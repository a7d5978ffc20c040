package service

import (
	"context"

	"chainpos/internal/models"
	"chainpos/internal/store"
	"chainpos/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoyaltyService maintains the append-only points ledger and the
// materialized customer balance. The two are always written in the same
// transaction, so the balance equals the signed sum of the ledger at
// every commit point.
type LoyaltyService struct {
	store       *store.Store
	logger      *zap.Logger
	earnRateBps int
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(store *store.Store, earnRateBps int) *LoyaltyService {
	return &LoyaltyService{
		store:       store,
		logger:      util.GetLogger(),
		earnRateBps: earnRateBps,
	}
}

// PointsForSpend converts net qualifying spend (cents) into points at
// the configured rate. 100 bps = 1 point per currency unit; the result
// is floored.
func PointsForSpend(netSpendCents int64, earnRateBps int) int64 {
	if netSpendCents <= 0 || earnRateBps <= 0 {
		return 0
	}
	return netSpendCents * int64(earnRateBps) / 10000
}

// AccrueTx records earned points for a completed order inside the
// caller's transaction. A nil customer is a no-op: walk-in orders earn
// nothing.
func (ls *LoyaltyService) AccrueTx(ctx context.Context, tx *sqlx.Tx, customerID *int64, netSpend, orderID int64) (int64, error) {
	if customerID == nil {
		return 0, nil
	}

	points := PointsForSpend(netSpend, ls.earnRateBps)

	if points > 0 {
		ltx := &models.LoyaltyTransaction{
			CustomerID: *customerID,
			OrderID:    &orderID,
			Type:       models.LoyaltyTypeEarned,
			Points:     points,
		}
		if err := ls.store.AppendLoyaltyTransactionTx(ctx, tx, ltx); err != nil {
			return 0, persistence("append loyalty transaction", err)
		}
	}

	if err := ls.store.CreditCustomerTx(ctx, tx, *customerID, points, netSpend); err != nil {
		return 0, persistence("credit customer", err)
	}

	util.LoyaltyPointsEarnedTotal.Add(float64(points))
	ls.logger.Info("Loyalty points accrued",
		zap.Int64("customer_id", *customerID),
		zap.Int64("order_id", orderID),
		zap.Int64("points", points))
	return points, nil
}

// Redeem subtracts points from a customer's balance and appends the
// matching Redeemed ledger entry. The balance guard runs in the same
// transaction, so the balance can never go negative.
func (ls *LoyaltyService) Redeem(ctx context.Context, customerID, points int64, orderID *int64) error {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.Redeem")
	defer span.End()

	if points < 1 {
		return validationf("redemption points must be >= 1, got %d", points)
	}

	err := ls.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := ls.store.DebitCustomerPointsTx(ctx, tx, customerID, points)
		if err != nil {
			return persistence("debit customer points", err)
		}
		if !ok {
			customer, err := ls.store.GetCustomerByID(ctx, customerID)
			if err != nil {
				return persistence("get customer", err)
			}
			util.LoyaltyRedemptionsFailed.Inc()
			return &InsufficientPointsError{
				CustomerID: customerID,
				Requested:  points,
				Balance:    customer.LoyaltyPoints,
			}
		}

		ltx := &models.LoyaltyTransaction{
			CustomerID: customerID,
			OrderID:    orderID,
			Type:       models.LoyaltyTypeRedeemed,
			Points:     -points,
		}
		if err := ls.store.AppendLoyaltyTransactionTx(ctx, tx, ltx); err != nil {
			return persistence("append loyalty transaction", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ls.logger.Info("Loyalty points redeemed",
		zap.Int64("customer_id", customerID),
		zap.Int64("points", points))
	return nil
}

// GetBalance returns a customer's current point balance
func (ls *LoyaltyService) GetBalance(ctx context.Context, customerID int64) (int64, error) {
	customer, err := ls.store.GetCustomerByID(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return customer.LoyaltyPoints, nil
}

// GetLedger returns a customer's full transaction history
func (ls *LoyaltyService) GetLedger(ctx context.Context, customerID int64) ([]models.LoyaltyTransaction, error) {
	return ls.store.GetLoyaltyTransactions(ctx, customerID)
}
