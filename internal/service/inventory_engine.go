package service

import (
	"context"
	"time"

	"chainpos/internal/broker"
	"chainpos/internal/models"
	"chainpos/internal/redisclient"
	"chainpos/internal/store"
	"chainpos/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InventoryEngine resolves order lines to ingredient demand and applies
// atomic, lot-level stock decrements and reversals
type InventoryEngine struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	alertTTL       time.Duration
}

// NewInventoryEngine creates a new inventory engine
func NewInventoryEngine(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	alertTTL time.Duration,
) *InventoryEngine {
	return &InventoryEngine{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		alertTTL:       alertTTL,
	}
}

// LotDraw is one planned decrement against a specific lot
type LotDraw struct {
	LotID        int64
	IngredientID int64
	Quantity     decimal.Decimal
}

// AggregateDemand folds recipe quantities across all order lines into
// total demand per ingredient. The same ingredient reached through
// different dishes is summed.
func AggregateDemand(items []models.OrderItem, recipes []models.RecipeItem) map[int64]decimal.Decimal {
	byMenuItem := make(map[int64][]models.RecipeItem)
	for _, r := range recipes {
		byMenuItem[r.MenuItemID] = append(byMenuItem[r.MenuItemID], r)
	}

	demand := make(map[int64]decimal.Decimal)
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		for _, r := range byMenuItem[item.MenuItemID] {
			need := r.Quantity.Mul(qty)
			demand[r.IngredientID] = demand[r.IngredientID].Add(need)
		}
	}
	return demand
}

// AllocateLots plans per-lot draws for the demanded ingredients. Lots
// must already be ordered earliest-expiry first; each ingredient drains
// lots in that order. If total stock across all lots of any ingredient
// is short, nothing is planned and InsufficientStock is returned.
func AllocateLots(lots []models.InventoryLot, demand map[int64]decimal.Decimal) ([]LotDraw, error) {
	remaining := make(map[int64]decimal.Decimal, len(demand))
	available := make(map[int64]decimal.Decimal, len(demand))
	for id, qty := range demand {
		remaining[id] = qty
	}
	for _, lot := range lots {
		available[lot.IngredientID] = available[lot.IngredientID].Add(lot.CurrentStock)
	}

	for id, qty := range demand {
		if available[id].LessThan(qty) {
			return nil, &InsufficientStockError{
				IngredientID: id,
				Requested:    qty,
				Available:    available[id],
			}
		}
	}

	var draws []LotDraw
	for _, lot := range lots {
		need := remaining[lot.IngredientID]
		if need.IsZero() || lot.CurrentStock.IsZero() {
			continue
		}
		draw := decimal.Min(need, lot.CurrentStock)
		draws = append(draws, LotDraw{
			LotID:        lot.ID,
			IngredientID: lot.IngredientID,
			Quantity:     draw,
		})
		remaining[lot.IngredientID] = need.Sub(draw)
	}
	return draws, nil
}

// DecrementTx consumes stock for an order inside the caller's
// transaction. Returns the lots that dropped below their threshold so
// the caller can emit alerts after commit.
func (ie *InventoryEngine) DecrementTx(ctx context.Context, tx *sqlx.Tx, order *models.Order, items []models.OrderItem) ([]models.InventoryLot, error) {
	ctx, span := util.StartSpan(ctx, "InventoryEngine.Decrement")
	defer span.End()

	start := time.Now()
	defer func() {
		util.InventoryDecrementLatency.Observe(time.Since(start).Seconds())
	}()

	menuItemIDs := make([]int64, len(items))
	for i, item := range items {
		menuItemIDs[i] = item.MenuItemID
	}

	recipes, err := ie.store.GetRecipesForMenuItems(ctx, menuItemIDs)
	if err != nil {
		return nil, persistence("get recipes", err)
	}

	demand := AggregateDemand(items, recipes)
	if len(demand) == 0 {
		return nil, nil
	}

	ingredientIDs := make([]int64, 0, len(demand))
	for id := range demand {
		ingredientIDs = append(ingredientIDs, id)
	}

	lots, err := ie.store.LockLotsForIngredients(ctx, tx, order.LocationID, ingredientIDs)
	if err != nil {
		return nil, persistence("lock lots", err)
	}

	draws, err := AllocateLots(lots, demand)
	if err != nil {
		util.InventoryDecrementsFailed.WithLabelValues("insufficient_stock").Inc()
		return nil, err
	}

	drawnByLot := make(map[int64]decimal.Decimal, len(draws))
	for _, draw := range draws {
		if err := ie.store.ApplyLotDrawTx(ctx, tx, order.ID, draw.LotID, draw.IngredientID, draw.Quantity); err != nil {
			util.InventoryDecrementsFailed.WithLabelValues("db_error").Inc()
			return nil, persistence("apply lot draw", err)
		}
		drawnByLot[draw.LotID] = drawnByLot[draw.LotID].Add(draw.Quantity)
	}

	var lowLots []models.InventoryLot
	for _, lot := range lots {
		drawn, ok := drawnByLot[lot.ID]
		if !ok {
			continue
		}
		after := lot.CurrentStock.Sub(drawn)
		if after.LessThan(lot.MinimumThreshold) {
			lot.CurrentStock = after
			lowLots = append(lowLots, lot)
		}
	}

	ie.logger.Info("Inventory decremented",
		zap.Int64("order_id", order.ID),
		zap.Int("ingredients", len(demand)),
		zap.Int("lots_drawn", len(draws)),
		zap.Int("lots_below_threshold", len(lowLots)))

	return lowLots, nil
}

// adjustmentLotFor builds the replacement lot that receives a credited
// quantity when the consumption's original lot row no longer exists
func adjustmentLotFor(order *models.Order, cons models.LotConsumption) *models.InventoryLot {
	return &models.InventoryLot{
		LocationID:       order.LocationID,
		IngredientID:     cons.IngredientID,
		LotNumber:        "ADJ-" + uuid.New().String()[:8],
		CurrentStock:     cons.Quantity,
		MinimumThreshold: decimal.Zero,
	}
}

// ReverseTx credits an order's recorded consumptions back to their lots
// inside the caller's transaction. If a lot row no longer exists the
// credit lands in a fresh adjustment lot instead of a neighbour, keeping
// per-lot history truthful. Consumption records are deleted afterwards
// so a reversal cannot apply twice.
func (ie *InventoryEngine) ReverseTx(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	ctx, span := util.StartSpan(ctx, "InventoryEngine.Reverse")
	defer span.End()

	consumptions, err := ie.store.GetConsumptionsByOrderTx(ctx, tx, order.ID)
	if err != nil {
		return persistence("get consumptions", err)
	}
	if len(consumptions) == 0 {
		return nil
	}

	for _, cons := range consumptions {
		credited, err := ie.store.CreditLotTx(ctx, tx, cons.LotID, cons.Quantity)
		if err != nil {
			return persistence("credit lot", err)
		}
		if credited {
			continue
		}

		adjustment := adjustmentLotFor(order, cons)
		if err := ie.store.CreateAdjustmentLotTx(ctx, tx, adjustment); err != nil {
			return persistence("create adjustment lot", err)
		}
		ie.logger.Warn("Original lot gone, credited adjustment lot",
			zap.Int64("order_id", order.ID),
			zap.Int64("lot_id", cons.LotID),
			zap.String("adjustment_lot", adjustment.LotNumber))
	}

	if err := ie.store.DeleteConsumptionsTx(ctx, tx, order.ID); err != nil {
		return persistence("delete consumptions", err)
	}

	util.InventoryReversalsTotal.Inc()
	ie.logger.Info("Inventory reversal applied",
		zap.Int64("order_id", order.ID),
		zap.Int("lots_credited", len(consumptions)))
	return nil
}

// EmitLowStockAlerts publishes threshold-breach notifications for lots
// the decrement left below minimum, deduped per lot within the TTL
// window. Called after the owning transaction commits.
func (ie *InventoryEngine) EmitLowStockAlerts(ctx context.Context, lots []models.InventoryLot) {
	for _, lot := range lots {
		first, err := ie.redis.MarkLowStockAlerted(ctx, lot.LocationID, lot.ID, ie.alertTTL)
		if err != nil {
			ie.logger.Warn("Low-stock dedupe check failed, emitting anyway",
				zap.Int64("lot_id", lot.ID), zap.Error(err))
		} else if !first {
			continue
		}

		event := &models.LowStockAlertEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeLowStockAlert,
				Timestamp: time.Now(),
			},
			LocationID:       lot.LocationID,
			IngredientID:     lot.IngredientID,
			LotNumber:        lot.LotNumber,
			CurrentStock:     lot.CurrentStock,
			MinimumThreshold: lot.MinimumThreshold,
		}

		if err := ie.eventPublisher.PublishLowStockAlert(ctx, event); err != nil {
			ie.logger.Error("Failed to publish low-stock alert",
				zap.Int64("lot_id", lot.ID), zap.Error(err))
			continue
		}
		util.LowStockAlertsTotal.Inc()
	}
}

// GetLots returns the lots for one ingredient at a location
func (ie *InventoryEngine) GetLots(ctx context.Context, locationID, ingredientID int64) ([]models.InventoryLot, error) {
	return ie.store.GetLotsForIngredient(ctx, locationID, ingredientID)
}
