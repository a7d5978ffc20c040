package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location represents a restaurant location (master data, read-only here)
type Location struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	TaxRateBps int       `db:"tax_rate_bps" json:"tax_rate_bps"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Customer represents a loyalty-program customer
type Customer struct {
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Name               string    `db:"name" json:"name"`
	LoyaltyPoints      int64     `db:"loyalty_points" json:"loyalty_points"`
	TotalLifetimeValue int64     `db:"total_lifetime_value" json:"total_lifetime_value"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// MenuItem is a location-scoped priced dish. Price is in cents.
type MenuItem struct {
	ID         int64     `db:"id" json:"id"`
	LocationID int64     `db:"location_id" json:"location_id"`
	Name       string    `db:"name" json:"name"`
	Price      int64     `db:"price" json:"price"`
	Available  bool      `db:"available" json:"available"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Ingredient is a global catalog entry
type Ingredient struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`
}

// RecipeItem maps a menu item to one required ingredient quantity.
// At most one row per (menu_item, ingredient) pair.
type RecipeItem struct {
	MenuItemID   int64           `db:"menu_item_id" json:"menu_item_id"`
	IngredientID int64           `db:"ingredient_id" json:"ingredient_id"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
}

// InventoryLot is a per-(location, ingredient, lot) stock record.
// CurrentStock never goes negative; rows are kept at zero, never pruned.
type InventoryLot struct {
	ID               int64           `db:"id" json:"id"`
	LocationID       int64           `db:"location_id" json:"location_id"`
	IngredientID     int64           `db:"ingredient_id" json:"ingredient_id"`
	LotNumber        string          `db:"lot_number" json:"lot_number"`
	CurrentStock     decimal.Decimal `db:"current_stock" json:"current_stock"`
	MinimumThreshold decimal.Decimal `db:"minimum_threshold" json:"minimum_threshold"`
	ExpiresAt        *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// LotConsumption records exactly what a single order drew from a lot,
// so cancellation can credit the same lots back.
type LotConsumption struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"order_id"`
	LotID        int64           `db:"lot_id" json:"lot_id"`
	IngredientID int64           `db:"ingredient_id" json:"ingredient_id"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
}

// Order represents a customer order. Monetary fields are cents and
// satisfy total = subtotal + tax + tip - discount.
type Order struct {
	ID             int64     `db:"id" json:"id"`
	LocationID     int64     `db:"location_id" json:"location_id"`
	CustomerID     *int64    `db:"customer_id" json:"customer_id,omitempty"`
	EmployeeID     *int64    `db:"employee_id" json:"employee_id,omitempty"`
	PromotionID    *int64    `db:"promotion_id" json:"promotion_id,omitempty"`
	OrderType      string    `db:"order_type" json:"order_type"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	Subtotal       int64     `db:"subtotal" json:"subtotal"`
	TaxAmount      int64     `db:"tax_amount" json:"tax_amount"`
	TipAmount      int64     `db:"tip_amount" json:"tip_amount"`
	DiscountAmount int64     `db:"discount_amount" json:"discount_amount"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	Status         string    `db:"status" json:"status"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	BusinessDate   time.Time `db:"business_date" json:"business_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable order line with the menu price snapshotted
// at order time.
type OrderItem struct {
	ID         int64 `db:"id" json:"id"`
	OrderID    int64 `db:"order_id" json:"order_id"`
	MenuItemID int64 `db:"menu_item_id" json:"menu_item_id"`
	Quantity   int   `db:"quantity" json:"quantity"`
	UnitPrice  int64 `db:"unit_price" json:"unit_price"`
	LineTotal  int64 `db:"line_total" json:"line_total"`
}

// Promotion is an order-level discount with a bounded usage count
type Promotion struct {
	ID            int64     `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	DiscountType  string    `db:"discount_type" json:"discount_type"`
	DiscountValue int64     `db:"discount_value" json:"discount_value"`
	StartsAt      time.Time `db:"starts_at" json:"starts_at"`
	EndsAt        time.Time `db:"ends_at" json:"ends_at"`
	UsageLimit    int       `db:"usage_limit" json:"usage_limit"`
	TimesUsed     int       `db:"times_used" json:"times_used"`
	Active        bool      `db:"active" json:"active"`
}

// LoyaltyTransaction is an append-only ledger entry. Points are signed:
// positive for Earned/Adjustment credits, negative for Redeemed/Expired.
// The customer balance is always the sum of these rows.
type LoyaltyTransaction struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	OrderID    *int64    `db:"order_id" json:"order_id,omitempty"`
	Type       string    `db:"type" json:"type"`
	Points     int64     `db:"points" json:"points"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DailySalesSummary is one recomputable row per (location, business_date)
type DailySalesSummary struct {
	LocationID        int64     `db:"location_id" json:"location_id"`
	BusinessDate      time.Time `db:"business_date" json:"business_date"`
	TotalRevenue      int64     `db:"total_revenue" json:"total_revenue"`
	TotalOrders       int64     `db:"total_orders" json:"total_orders"`
	TotalCustomers    int64     `db:"total_customers" json:"total_customers"`
	AverageOrderValue int64     `db:"average_order_value" json:"average_order_value"`
	ComputedAt        time.Time `db:"computed_at" json:"computed_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Loyalty transaction types
const (
	LoyaltyTypeEarned     = "EARNED"
	LoyaltyTypeRedeemed   = "REDEEMED"
	LoyaltyTypeExpired    = "EXPIRED"
	LoyaltyTypeAdjustment = "ADJUSTMENT"
)

// Promotion discount types
const (
	DiscountTypePercent = "PERCENT"
	DiscountTypeFixed   = "FIXED"
)

// legalTransitions holds the allowed state-machine edges. COMPLETED and
// CANCELLED are terminal.
var legalTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted},
}

// CanTransition reports whether from -> to is a legal state-machine edge
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are allowed
func IsTerminalStatus(status string) bool {
	return len(legalTransitions[status]) == 0
}

// BusinessDate truncates a timestamp to its business date (UTC day)
func BusinessDate(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
