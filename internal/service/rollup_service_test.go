package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildSummary(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	summary := BuildSummary(1, date, 10000, 4, 3)

	assert.Equal(t, int64(1), summary.LocationID)
	assert.Equal(t, date, summary.BusinessDate)
	assert.Equal(t, int64(10000), summary.TotalRevenue)
	assert.Equal(t, int64(4), summary.TotalOrders)
	assert.Equal(t, int64(3), summary.TotalCustomers)
	assert.Equal(t, int64(2500), summary.AverageOrderValue)
}

func TestBuildSummaryAverageFloors(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	summary := BuildSummary(1, date, 1000, 3, 2)
	assert.Equal(t, int64(333), summary.AverageOrderValue)
}

func TestBuildSummaryEmptyDay(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	summary := BuildSummary(1, date, 0, 0, 0)

	assert.Zero(t, summary.TotalRevenue)
	assert.Zero(t, summary.TotalOrders)
	assert.Zero(t, summary.AverageOrderValue)
}

func TestBuildSummaryIdempotent(t *testing.T) {
	// identical inputs yield identical rows, run after run
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	first := BuildSummary(2, date, 48350, 17, 11)
	second := BuildSummary(2, date, 48350, 17, 11)

	assert.Equal(t, first, second)
}
