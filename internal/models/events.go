package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderPreparing = "ORDER_PREPARING"
	EventTypeOrderReady     = "ORDER_READY"
	EventTypeOrderCompleted = "ORDER_COMPLETED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypeLowStockAlert  = "LOW_STOCK_ALERT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
	UnitPrice  int64 `json:"unit_price"`
}

// OrderPlacedEvent published when an order is created in PENDING
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	LocationID  int64           `json:"location_id"`
	CustomerID  *int64          `json:"customer_id,omitempty"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderTransitionedEvent published for every lifecycle transition.
// EventType carries the target status (ORDER_PREPARING, ORDER_READY,
// ORDER_COMPLETED, ORDER_CANCELLED).
type OrderTransitionedEvent struct {
	BaseEvent
	OrderID      int64     `json:"order_id"`
	LocationID   int64     `json:"location_id"`
	CustomerID   *int64    `json:"customer_id,omitempty"`
	Status       string    `json:"status"`
	TotalAmount  int64     `json:"total_amount"`
	BusinessDate time.Time `json:"business_date"`
	PointsEarned int64     `json:"points_earned,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// LowStockAlertEvent published when a lot drops below its threshold
type LowStockAlertEvent struct {
	BaseEvent
	LocationID       int64           `json:"location_id"`
	IngredientID     int64           `json:"ingredient_id"`
	LotNumber        string          `json:"lot_number"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
}
