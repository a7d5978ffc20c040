package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPreparing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusReady, OrderStatusCompleted, true},

		{OrderStatusPending, OrderStatusReady, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusReady, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPreparing, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminalStatus(OrderStatusCompleted))
	assert.True(t, IsTerminalStatus(OrderStatusCancelled))
	assert.False(t, IsTerminalStatus(OrderStatusPending))
	assert.False(t, IsTerminalStatus(OrderStatusPreparing))
	assert.False(t, IsTerminalStatus(OrderStatusReady))
}

func TestBusinessDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), BusinessDate(ts))

	// local timestamps normalize to the UTC day
	loc := time.FixedZone("UTC+9", 9*3600)
	early := time.Date(2024, 3, 16, 3, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), BusinessDate(early))
}
