package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointsForSpend(t *testing.T) {
	// 100 bps = 1 point per dollar, floored
	assert.Equal(t, int64(25), PointsForSpend(2550, 100))
	assert.Equal(t, int64(25), PointsForSpend(2500, 100))
	assert.Equal(t, int64(0), PointsForSpend(99, 100))

	// double rate
	assert.Equal(t, int64(51), PointsForSpend(2550, 200))

	// degenerate inputs earn nothing
	assert.Equal(t, int64(0), PointsForSpend(0, 100))
	assert.Equal(t, int64(0), PointsForSpend(-500, 100))
	assert.Equal(t, int64(0), PointsForSpend(2550, 0))
}

func TestInsufficientPointsError(t *testing.T) {
	err := &InsufficientPointsError{CustomerID: 7, Requested: 100, Balance: 40}
	assert.Contains(t, err.Error(), "customer 7")
	assert.Contains(t, err.Error(), "requested=100")
	assert.Contains(t, err.Error(), "balance=40")
}
