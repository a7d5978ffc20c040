package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chainpos/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction, committing on nil error and
// rolling back otherwise. All multi-entity writes go through here.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLocationByID retrieves a location by ID
func (s *Store) GetLocationByID(ctx context.Context, id int64) (*models.Location, error) {
	var loc models.Location
	err := s.db.GetContext(ctx, &loc, "SELECT * FROM locations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("location not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// GetActiveLocations retrieves all active locations
func (s *Store) GetActiveLocations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	err := s.db.SelectContext(ctx, &locations,
		"SELECT * FROM locations WHERE active = TRUE ORDER BY id")
	return locations, err
}

// GetMenuItemsByIDs retrieves menu items for one location by IDs
func (s *Store) GetMenuItemsByIDs(ctx context.Context, locationID int64, ids []int64) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return []models.MenuItem{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM menu_items WHERE location_id = ? AND id IN (?)", locationID, ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.MenuItem
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// GetRecipesForMenuItems retrieves recipe rows for a set of menu items
func (s *Store) GetRecipesForMenuItems(ctx context.Context, menuItemIDs []int64) ([]models.RecipeItem, error) {
	if len(menuItemIDs) == 0 {
		return []models.RecipeItem{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM recipe_items WHERE menu_item_id IN (?)", menuItemIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var recipes []models.RecipeItem
	err = s.db.SelectContext(ctx, &recipes, query, args...)
	return recipes, err
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetPromotionByCode retrieves a promotion by code
func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.GetContext(ctx, &promo, "SELECT * FROM promotions WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// GetActivePromotions retrieves all active promotions
func (s *Store) GetActivePromotions(ctx context.Context) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.SelectContext(ctx, &promos,
		"SELECT * FROM promotions WHERE active = TRUE ORDER BY id")
	return promos, err
}

// GetPromotionByID retrieves a promotion by ID
func (s *Store) GetPromotionByID(ctx context.Context, id int64) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.GetContext(ctx, &promo, "SELECT * FROM promotions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// ReservePromotionUsageTx increments times_used inside tx, guarded so
// the count can never exceed usage_limit under concurrency. Returns
// false when the limit is already reached. Running inside the order's
// own transaction means a reservation can never outlive a failed order.
func (s *Store) ReservePromotionUsageTx(ctx context.Context, tx *sqlx.Tx, promotionID int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE promotions SET times_used = times_used + 1 WHERE id = $1 AND times_used < usage_limit",
		promotionID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleasePromotionUsageTx returns a reserved use inside tx (cancelling
// an order gives its promotion use back)
func (s *Store) ReleasePromotionUsageTx(ctx context.Context, tx *sqlx.Tx, promotionID int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE promotions SET times_used = times_used - 1 WHERE id = $1 AND times_used > 0",
		promotionID)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
