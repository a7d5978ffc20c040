package service

import (
	"context"
	"time"

	"chainpos/internal/models"
	"chainpos/internal/store"
	"chainpos/internal/util"

	"go.uber.org/zap"
)

// RollupService maintains the per-(location, business_date) sales
// summary. It always recomputes from completed orders instead of
// incrementing, so re-running any number of times yields the same row.
type RollupService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewRollupService creates a new rollup service
func NewRollupService(store *store.Store) *RollupService {
	return &RollupService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// BuildSummary derives a summary row from the aggregate numbers.
// Average order value is floored; an empty day yields all zeros.
func BuildSummary(locationID int64, businessDate time.Time, revenue, orders, customers int64) models.DailySalesSummary {
	var avg int64
	if orders > 0 {
		avg = revenue / orders
	}
	return models.DailySalesSummary{
		LocationID:        locationID,
		BusinessDate:      businessDate,
		TotalRevenue:      revenue,
		TotalOrders:       orders,
		TotalCustomers:    customers,
		AverageOrderValue: avg,
	}
}

// Recompute rebuilds the summary for one (location, business_date) from
// all completed orders and upserts it
func (rs *RollupService) Recompute(ctx context.Context, locationID int64, businessDate time.Time) (*models.DailySalesSummary, error) {
	ctx, span := util.StartSpan(ctx, "RollupService.Recompute")
	defer span.End()

	start := time.Now()
	defer func() {
		util.RollupLatency.Observe(time.Since(start).Seconds())
	}()

	businessDate = models.BusinessDate(businessDate)

	revenue, orders, customers, err := rs.store.AggregateCompletedOrders(ctx, locationID, businessDate)
	if err != nil {
		return nil, persistence("aggregate completed orders", err)
	}

	summary := BuildSummary(locationID, businessDate, revenue, orders, customers)
	if err := rs.store.UpsertDailySummary(ctx, &summary); err != nil {
		return nil, persistence("upsert daily summary", err)
	}

	util.RollupRunsTotal.Inc()
	rs.logger.Info("Daily summary recomputed",
		zap.Int64("location_id", locationID),
		zap.Time("business_date", businessDate),
		zap.Int64("total_orders", summary.TotalOrders),
		zap.Int64("total_revenue", summary.TotalRevenue))
	return &summary, nil
}

// RecomputeAllForDate rebuilds summaries for every active location
func (rs *RollupService) RecomputeAllForDate(ctx context.Context, businessDate time.Time) error {
	locations, err := rs.store.GetActiveLocations(ctx)
	if err != nil {
		return persistence("get active locations", err)
	}

	for _, loc := range locations {
		if _, err := rs.Recompute(ctx, loc.ID, businessDate); err != nil {
			rs.logger.Error("Failed to recompute summary",
				zap.Int64("location_id", loc.ID), zap.Error(err))
		}
	}
	return nil
}

// GetSummary retrieves a summary row, nil if never computed
func (rs *RollupService) GetSummary(ctx context.Context, locationID int64, businessDate time.Time) (*models.DailySalesSummary, error) {
	return rs.store.GetDailySummary(ctx, locationID, models.BusinessDate(businessDate))
}
