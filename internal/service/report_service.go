package service

import (
	"context"
	"fmt"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// revenueStatuses are the order statuses counted as realized sales.
var revenueStatuses = []string{models.OrderStatusReady, models.OrderStatusServed}

// ReportService derives read-only aggregates from orders and products
type ReportService struct {
	store        *store.Store
	redis        *redisclient.Client
	logger       *zap.Logger
	dashboardTTL time.Duration
	topLimit     int
}

// NewReportService creates a new report service
func NewReportService(store *store.Store, redis *redisclient.Client, dashboardTTL time.Duration, topLimit int) *ReportService {
	if topLimit <= 0 {
		topLimit = 10
	}
	return &ReportService{
		store:        store,
		redis:        redis,
		logger:       util.GetLogger(),
		dashboardTTL: dashboardTTL,
		topLimit:     topLimit,
	}
}

// normalizeRange validates a date range and widens `to` to an exclusive
// end-of-day bound.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		ve := apperrors.NewValidationError()
		ve.Add("date_range", "both from and to dates are required")
		return time.Time{}, time.Time{}, ve
	}
	if to.Before(from) {
		ve := apperrors.NewValidationError()
		ve.Add("date_range", "to date precedes from date")
		return time.Time{}, time.Time{}, ve
	}
	return from, to.AddDate(0, 0, 1), nil
}

// statusesOrDefault validates an explicit status filter, falling back to the
// revenue statuses when none is given.
func statusesOrDefault(statuses []string) ([]string, error) {
	if len(statuses) == 0 {
		return revenueStatuses, nil
	}
	ve := apperrors.NewValidationError()
	for _, st := range statuses {
		if !models.IsValidOrderStatus(st) {
			ve.Add("status", fmt.Sprintf("invalid order status %q", st))
		}
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return statuses, nil
}

// SalesSummary aggregates revenue, order count and average basket over a
// date range and status set.
func (s *ReportService) SalesSummary(ctx context.Context, from, to time.Time, statuses []string) (*models.SalesSummary, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.SalesSummary")
	defer span.End()

	from, toExcl, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	sts, err := statusesOrDefault(statuses)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.GetSalesSummary(ctx, from, toExcl, sts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}

	if summary.OrderCount > 0 {
		summary.AverageBasket = summary.Revenue.
			Div(decimal.NewFromInt(int64(summary.OrderCount))).
			Round(2)
	} else {
		summary.AverageBasket = decimal.Zero
	}
	return summary, nil
}

// DailySales aggregates revenue per calendar day over a date range
func (s *ReportService) DailySales(ctx context.Context, from, to time.Time, statuses []string) ([]models.DailySales, error) {
	from, toExcl, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	sts, err := statusesOrDefault(statuses)
	if err != nil {
		return nil, err
	}

	days, err := s.store.GetDailySales(ctx, from, toExcl, sts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily sales: %w", err)
	}
	return days, nil
}

// TopProducts ranks products by quantity sold over a date range
func (s *ReportService) TopProducts(ctx context.Context, from, to time.Time, statuses []string, limit int) ([]models.TopProduct, error) {
	from, toExcl, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	sts, err := statusesOrDefault(statuses)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = s.topLimit
	}

	top, err := s.store.GetTopProducts(ctx, from, toExcl, sts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	return top, nil
}

// OrderCountsByStatus counts orders per lifecycle status
func (s *ReportService) OrderCountsByStatus(ctx context.Context) (map[string]int, error) {
	return s.store.CountOrdersByStatus(ctx)
}

// StockDashboard summarizes the stock situation across the catalog. The
// result is cached in redis for a short TTL; the cache is a read
// optimization only and never feeds back into stock bookkeeping.
func (s *ReportService) StockDashboard(ctx context.Context) (*models.StockDashboard, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.StockDashboard")
	defer span.End()

	if s.redis != nil {
		var cached models.StockDashboard
		found, err := s.redis.GetDashboard(ctx, &cached)
		if err != nil {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	dashboard, err := s.store.GetStockDashboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock dashboard: %w", err)
	}
	dashboard.GeneratedAt = time.Now()

	if s.redis != nil {
		if err := s.redis.SetDashboard(ctx, dashboard, s.dashboardTTL); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, nil
}
