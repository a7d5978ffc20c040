package api

import (
	"errors"
	"net/http"
	"testing"

	"chainpos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &service.ValidationError{Msg: "bad"}, http.StatusBadRequest},
		{"invalid transition", &service.InvalidTransitionError{OrderID: 1, From: "COMPLETED", To: "PENDING"}, http.StatusConflict},
		{"insufficient stock", &service.InsufficientStockError{IngredientID: 1, Requested: decimal.NewFromInt(5), Available: decimal.NewFromInt(4)}, http.StatusUnprocessableEntity},
		{"insufficient points", &service.InsufficientPointsError{CustomerID: 1, Requested: 100, Balance: 10}, http.StatusUnprocessableEntity},
		{"concurrency conflict", service.ErrConcurrencyConflict, http.StatusConflict},
		{"persistence", &service.PersistenceError{Op: "insert", Err: errors.New("down")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, StatusForError(tc.err))
		})
	}
}

func TestStatusForWrappedError(t *testing.T) {
	wrapped := &service.PersistenceError{Op: "tx", Err: errors.New("conn refused")}
	assert.Equal(t, http.StatusInternalServerError, StatusForError(wrapped))

	// taxonomy survives fmt wrapping through the service layer
	assert.Equal(t, http.StatusConflict, StatusForError(service.ErrConcurrencyConflict))
}
