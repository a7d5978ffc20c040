package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrConcurrencyConflict marks a lost update (a guarded write matched no
// rows). The whole operation is safe to retry.
var ErrConcurrencyConflict = errors.New("concurrency conflict, retry the operation")

// ValidationError rejects malformed input before any persistence
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError rejects an illegal state-machine edge
type InvalidTransitionError struct {
	OrderID int64
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for order %d: %s -> %s", e.OrderID, e.From, e.To)
}

// InsufficientStockError rejects a decrement whose aggregate demand
// exceeds the stock available across all lots for an ingredient
type InsufficientStockError struct {
	IngredientID int64
	Requested    decimal.Decimal
	Available    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for ingredient %d: requested=%s, available=%s",
		e.IngredientID, e.Requested, e.Available)
}

// InsufficientPointsError rejects a redemption that would drive the
// customer's balance negative
type InsufficientPointsError struct {
	CustomerID int64
	Requested  int64
	Balance    int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for customer %d: requested=%d, balance=%d",
		e.CustomerID, e.Requested, e.Balance)
}

// PersistenceError wraps a store failure; no partial commit is assumed
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
