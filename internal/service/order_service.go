package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainpos/internal/broker"
	"chainpos/internal/models"
	"chainpos/internal/redisclient"
	"chainpos/internal/store"
	"chainpos/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// OrderService drives orders through their lifecycle: creation with
// totals and promotion handling, then the state machine with its
// inventory and loyalty side effects.
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	inventory      *InventoryEngine
	loyalty        *LoyaltyService
	logger         *zap.Logger
	taxRateBps     int
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	inventory *InventoryEngine,
	loyalty *LoyaltyService,
	taxRateBps int,
) *OrderService {
	return &OrderService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		inventory:      inventory,
		loyalty:        loyalty,
		logger:         util.GetLogger(),
		taxRateBps:     taxRateBps,
	}
}

// PlaceOrderRequest represents a request to create an order
type PlaceOrderRequest struct {
	LocationID     int64              `json:"location_id" binding:"required"`
	CustomerID     *int64             `json:"customer_id,omitempty"`
	EmployeeID     *int64             `json:"employee_id,omitempty"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1"`
	OrderType      string             `json:"order_type" binding:"required"`
	PaymentMethod  string             `json:"payment_method" binding:"required"`
	PromotionCode  string             `json:"promotion_code,omitempty"`
	TipAmount      int64              `json:"tip_amount"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	MenuItemID int64 `json:"menu_item_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderResponse represents the response after creating an order
type PlaceOrderResponse struct {
	OrderID     int64  `json:"order_id"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"total_amount"`
}

// DiscountFor computes a promotion's discount against a subtotal,
// capped so the discount never exceeds the subtotal
func DiscountFor(promo *models.Promotion, subtotal int64) int64 {
	var discount int64
	switch promo.DiscountType {
	case models.DiscountTypePercent:
		discount = subtotal * promo.DiscountValue / 100
	case models.DiscountTypeFixed:
		discount = promo.DiscountValue
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// ValidatePromotionWindow checks active status and the date window.
// Usage-limit enforcement happens separately via atomic reservation.
func ValidatePromotionWindow(promo *models.Promotion, now time.Time) error {
	if !promo.Active {
		return validationf("promotion %s is not active", promo.Code)
	}
	if now.Before(promo.StartsAt) || now.After(promo.EndsAt) {
		return validationf("promotion %s is outside its date window", promo.Code)
	}
	return nil
}

// ComputeTax computes sales tax on a subtotal at the given rate in
// basis points, rounding down
func ComputeTax(subtotal int64, taxRateBps int) int64 {
	if subtotal <= 0 || taxRateBps <= 0 {
		return 0
	}
	return subtotal * int64(taxRateBps) / 10000
}

// PlaceOrder validates and persists a new order in PENDING status.
// Order and items are written as one atomic unit.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, validationf("order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, validationf("quantity must be >= 1 for menu item %d", item.MenuItemID)
		}
	}
	if req.TipAmount < 0 {
		return nil, validationf("tip must be non-negative")
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existingOrder, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, persistence("check idempotency", err)
	}
	if existingOrder != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existingOrder.ID))
		return &PlaceOrderResponse{
			OrderID:     existingOrder.ID,
			Status:      existingOrder.Status,
			TotalAmount: existingOrder.TotalAmount,
		}, nil
	}

	location, err := s.store.GetLocationByID(ctx, req.LocationID)
	if err != nil {
		return nil, validationf("unknown location %d", req.LocationID)
	}
	if !location.Active {
		util.OrdersFailedTotal.WithLabelValues("inactive_location").Inc()
		return nil, validationf("location %d is not active", req.LocationID)
	}

	menuItems, err := s.validateOrderItems(ctx, req.LocationID, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	var subtotal int64
	orderItems := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		menuItem := menuItems[item.MenuItemID]
		lineTotal := menuItem.Price * int64(item.Quantity)
		subtotal += lineTotal
		orderItems = append(orderItems, models.OrderItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  menuItem.Price,
			LineTotal:  lineTotal,
		})
	}

	var promo *models.Promotion
	var discount int64
	if req.PromotionCode != "" {
		promo, err = s.checkPromotion(ctx, req.PromotionCode)
		if err != nil {
			return nil, err
		}
		discount = DiscountFor(promo, subtotal)
	}

	taxRate := s.taxRateBps
	if location.TaxRateBps > 0 {
		taxRate = location.TaxRateBps
	}
	tax := ComputeTax(subtotal, taxRate)
	total := subtotal + tax + req.TipAmount - discount

	now := time.Now()
	order := &models.Order{
		LocationID:     req.LocationID,
		CustomerID:     req.CustomerID,
		EmployeeID:     req.EmployeeID,
		OrderType:      req.OrderType,
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		TipAmount:      req.TipAmount,
		DiscountAmount: discount,
		TotalAmount:    total,
		Status:         models.OrderStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		BusinessDate:   models.BusinessDate(now),
	}
	if promo != nil {
		order.PromotionID = &promo.ID
	}

	// The promotion's guarded increment rides in the same transaction
	// as the order insert: a crash between the two rolls both back, so
	// times_used can never count an order that was never persisted.
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if promo != nil {
			reserved, err := s.store.ReservePromotionUsageTx(ctx, tx, promo.ID)
			if err != nil {
				return persistence("reserve promotion usage", err)
			}
			if !reserved {
				util.PromotionsRejectedTotal.WithLabelValues("usage_limit").Inc()
				return validationf("promotion %s usage limit reached", promo.Code)
			}
		}
		if err := s.store.CreateOrderWithItemsTx(ctx, tx, order, orderItems); err != nil {
			return persistence("create order", err)
		}
		return nil
	})
	if err != nil {
		if promo != nil {
			if rerr := s.redis.ReleasePromotionUse(ctx, promo.Code); rerr != nil {
				s.logger.Error("Failed to release promo counter",
					zap.String("code", promo.Code), zap.Error(rerr))
			}
		}
		var pe *PersistenceError
		if errors.As(err, &pe) {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}
	if promo != nil {
		util.PromotionsAppliedTotal.Inc()
	}

	if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, 24*time.Hour); err != nil {
		s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("location_id", order.LocationID),
		zap.Int64("total", order.TotalAmount))

	eventItems := make([]models.OrderItemData, len(orderItems))
	for i, item := range orderItems {
		eventItems[i] = models.OrderItemData{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		LocationID:  order.LocationID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &PlaceOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}, nil
}

// checkPromotion validates the promotion and takes the redis fast-path
// reservation. The guarded database increment is the authority and
// happens later, inside the order's own transaction, so times_used can
// never exceed usage_limit even when the two disagree.
func (s *OrderService) checkPromotion(ctx context.Context, code string) (*models.Promotion, error) {
	promo, err := s.store.GetPromotionByCode(ctx, code)
	if err != nil {
		return nil, persistence("get promotion", err)
	}
	if promo == nil {
		util.PromotionsRejectedTotal.WithLabelValues("unknown_code").Inc()
		return nil, validationf("unknown promotion code %s", code)
	}
	if err := ValidatePromotionWindow(promo, time.Now()); err != nil {
		util.PromotionsRejectedTotal.WithLabelValues("window").Inc()
		return nil, err
	}

	reservedFast, err := s.redis.ReservePromotionUse(ctx, promo.Code, promo.UsageLimit)
	if err != nil {
		s.logger.Warn("Redis promo reservation failed, relying on DB",
			zap.String("code", code), zap.Error(err))
		reservedFast = true
	}
	if !reservedFast {
		util.PromotionsRejectedTotal.WithLabelValues("usage_limit").Inc()
		return nil, validationf("promotion %s usage limit reached", code)
	}

	return promo, nil
}

// validateOrderItems checks that all menu items exist at the location
// and are available
func (s *OrderService) validateOrderItems(ctx context.Context, locationID int64, items []OrderItemRequest) (map[int64]*models.MenuItem, error) {
	menuItemIDs := make([]int64, len(items))
	for i, item := range items {
		menuItemIDs[i] = item.MenuItemID
	}

	menuItems, err := s.store.GetMenuItemsByIDs(ctx, locationID, menuItemIDs)
	if err != nil {
		return nil, persistence("get menu items", err)
	}

	itemMap := make(map[int64]*models.MenuItem)
	for i := range menuItems {
		itemMap[menuItems[i].ID] = &menuItems[i]
	}

	for _, item := range items {
		menuItem, ok := itemMap[item.MenuItemID]
		if !ok {
			return nil, validationf("menu item %d not found at location %d", item.MenuItemID, locationID)
		}
		if !menuItem.Available {
			return nil, validationf("menu item %d is not available", item.MenuItemID)
		}
	}

	return itemMap, nil
}

// statusEventTypes maps a target status to its published event type
var statusEventTypes = map[string]string{
	models.OrderStatusPreparing: models.EventTypeOrderPreparing,
	models.OrderStatusReady:     models.EventTypeOrderReady,
	models.OrderStatusCompleted: models.EventTypeOrderCompleted,
	models.OrderStatusCancelled: models.EventTypeOrderCancelled,
}

// TransitionOrder moves an order along its state machine. The status
// update and its side effects (inventory decrement on PREPARING,
// loyalty accrual on COMPLETED, inventory reversal on CANCELLED) commit
// as one transaction: a failed side effect leaves the order where it
// was.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID int64, target string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.TransitionOrder")
	defer span.End()

	if _, known := statusEventTypes[target]; !known {
		return nil, validationf("unknown target status %s", target)
	}

	if target == models.OrderStatusCancelled {
		// Reversal must not interleave with another mutation of the
		// same order's lots.
		acquired, err := s.redis.AcquireLock(ctx, fmt.Sprintf("order-cancel:%d", orderID), 30*time.Second)
		if err != nil {
			s.logger.Warn("Cancel lock unavailable, relying on row locks", zap.Error(err))
		} else if !acquired {
			return nil, ErrConcurrencyConflict
		} else {
			defer func() {
				_ = s.redis.ReleaseLock(ctx, fmt.Sprintf("order-cancel:%d", orderID))
			}()
		}
	}

	var (
		updated      *models.Order
		lowLots      []models.InventoryLot
		pointsEarned int64
	)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.store.LockOrderTx(ctx, tx, orderID)
		if err != nil {
			return persistence("lock order", err)
		}

		if !models.CanTransition(order.Status, target) {
			return &InvalidTransitionError{OrderID: orderID, From: order.Status, To: target}
		}

		switch target {
		case models.OrderStatusPreparing:
			items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
			if err != nil {
				return persistence("get order items", err)
			}
			lowLots, err = s.inventory.DecrementTx(ctx, tx, order, items)
			if err != nil {
				return err
			}

		case models.OrderStatusCompleted:
			// Stock is normally consumed at PREPARING; cover the
			// case where this order never recorded a draw.
			decremented, err := s.store.HasConsumptionsTx(ctx, tx, orderID)
			if err != nil {
				return persistence("check consumptions", err)
			}
			if !decremented {
				items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
				if err != nil {
					return persistence("get order items", err)
				}
				lowLots, err = s.inventory.DecrementTx(ctx, tx, order, items)
				if err != nil {
					return err
				}
			}

			netSpend := order.Subtotal - order.DiscountAmount
			if netSpend < 0 {
				netSpend = 0
			}
			pointsEarned, err = s.loyalty.AccrueTx(ctx, tx, order.CustomerID, netSpend, orderID)
			if err != nil {
				return err
			}

		case models.OrderStatusCancelled:
			if err := s.inventory.ReverseTx(ctx, tx, order); err != nil {
				return err
			}
			// A cancelled order never consumed its discount, so its
			// reserved promotion use goes back too.
			if order.PromotionID != nil {
				if err := s.store.ReleasePromotionUsageTx(ctx, tx, *order.PromotionID); err != nil {
					return persistence("release promotion usage", err)
				}
			}
		}

		ok, err := s.store.UpdateOrderStatusTx(ctx, tx, orderID, order.Status, target)
		if err != nil {
			return persistence("update order status", err)
		}
		if !ok {
			return ErrConcurrencyConflict
		}

		order.Status = target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransitionsTotal.WithLabelValues(target).Inc()
	switch target {
	case models.OrderStatusCompleted:
		util.OrdersCompletedTotal.Inc()
	case models.OrderStatusCancelled:
		util.OrdersCancelledTotal.Inc()
	}

	s.inventory.EmitLowStockAlerts(ctx, lowLots)

	if target == models.OrderStatusCancelled && updated.PromotionID != nil {
		promo, err := s.store.GetPromotionByID(ctx, *updated.PromotionID)
		if err != nil || promo == nil {
			s.logger.Warn("Promo counter not released, will reseed on restart",
				zap.Int64("order_id", updated.ID), zap.Error(err))
		} else if err := s.redis.ReleasePromotionUse(ctx, promo.Code); err != nil {
			s.logger.Warn("Promo counter not released, will reseed on restart",
				zap.String("code", promo.Code), zap.Error(err))
		}
	}

	event := &models.OrderTransitionedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: statusEventTypes[target],
			Timestamp: time.Now(),
		},
		OrderID:      updated.ID,
		LocationID:   updated.LocationID,
		CustomerID:   updated.CustomerID,
		Status:       updated.Status,
		TotalAmount:  updated.TotalAmount,
		BusinessDate: updated.BusinessDate,
		PointsEarned: pointsEarned,
	}
	if err := s.eventPublisher.PublishOrderTransitioned(ctx, event); err != nil {
		s.logger.Error("Failed to publish transition event",
			zap.Int64("order_id", updated.ID), zap.Error(err))
	}

	s.logger.Info("Order transitioned",
		zap.Int64("order_id", updated.ID),
		zap.String("status", updated.Status))
	return updated, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetCustomerOrders lists a customer's orders, newest first
func (s *OrderService) GetCustomerOrders(ctx context.Context, customerID int64) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByCustomerID(ctx, customerID)
	if err != nil {
		return nil, persistence("get customer orders", err)
	}
	return orders, nil
}

// SyncPromotionCounters seeds redis promo counters from the database
// on startup
func (s *OrderService) SyncPromotionCounters(ctx context.Context) error {
	promos, err := s.store.GetActivePromotions(ctx)
	if err != nil {
		return fmt.Errorf("failed to get promotions: %w", err)
	}

	for _, promo := range promos {
		if err := s.redis.InitPromotionCounter(ctx, promo.Code, promo.TimesUsed); err != nil {
			s.logger.Error("Failed to seed promo counter",
				zap.String("code", promo.Code), zap.Error(err))
		}
	}

	s.logger.Info("Promotion counters synced", zap.Int("count", len(promos)))
	return nil
}
