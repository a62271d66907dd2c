package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mycafe-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// ErrInvalidAnalyticsMode is returned for an unknown grouping mode.
var ErrInvalidAnalyticsMode = errors.New("invalid analytics mode")

const (
	kpiCacheKey = "dashboard:kpi"
	kpiCacheTTL = time.Minute
)

// DashboardStore defines the DB methods the dashboard service needs.
type DashboardStore interface {
	PaidOrdersSummary(ctx context.Context, arg database.PaidOrdersSummaryParams) (database.PaidOrdersSummaryRow, error)
	CountOrdersByStatusSince(ctx context.Context, since time.Time) ([]database.OrderStatusCountRow, error)
	ListOrdersForAnalytics(ctx context.Context) ([]database.OrderAnalyticsRow, error)
}

// KPICache caches serialized KPI results. Get returns (nil, nil) on a miss.
// Satisfied by *cache.Cache; the service works identically without one.
type KPICache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DashboardService aggregates revenue and order-volume figures.
type DashboardService struct {
	store DashboardStore
	cache KPICache
	now   func() time.Time
}

// NewDashboardService creates a new DashboardService. cache may be nil.
func NewDashboardService(store DashboardStore, cache KPICache) *DashboardService {
	return &DashboardService{store: store, cache: cache, now: time.Now}
}

// KPIResult compares the current calendar month against the previous one.
type KPIResult struct {
	TotalRevenue     int64            `json:"total_revenue"`
	TotalOrders      int64            `json:"total_orders"`
	AvgRevenuePerDay int64            `json:"avg_revenue_per_day"`
	RevenueGrowth    float64          `json:"revenue_growth"`
	OrdersGrowth     float64          `json:"orders_growth"`
	TodayByStatus    map[string]int64 `json:"today_by_status"`
}

// KPI computes the dashboard headline numbers. Revenue and order counts
// cover [first of month, first of next month); the daily average divides by
// the month's full day count, not days elapsed. Growth against the previous
// month is 0 when the previous month had nothing to compare against.
// Results are cached for a minute; cache failures fall through to the DB.
func (s *DashboardService) KPI(ctx context.Context) (*KPIResult, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, kpiCacheKey); err != nil {
			log.Printf("ERROR: kpi cache get: %v", err)
		} else if raw != nil {
			var cached KPIResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	now := s.now()
	curStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	curEnd := curStart.AddDate(0, 1, 0)
	prevStart := curStart.AddDate(0, -1, 0)

	cur, err := s.store.PaidOrdersSummary(ctx, database.PaidOrdersSummaryParams{From: curStart, To: curEnd})
	if err != nil {
		return nil, fmt.Errorf("current month summary: %w", err)
	}
	prev, err := s.store.PaidOrdersSummary(ctx, database.PaidOrdersSummaryParams{From: prevStart, To: curStart})
	if err != nil {
		return nil, fmt.Errorf("previous month summary: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	statusCounts, err := s.store.CountOrdersByStatusSince(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("today status counts: %w", err)
	}
	byStatus := make(map[string]int64, len(statusCounts))
	for _, row := range statusCounts {
		byStatus[row.Status] = row.Count
	}

	daysInMonth := int64(curEnd.Sub(curStart).Hours() / 24)

	result := &KPIResult{
		TotalRevenue: cur.TotalRevenue,
		TotalOrders:  cur.OrderCount,
		AvgRevenuePerDay: decimal.NewFromInt(cur.TotalRevenue).
			Div(decimal.NewFromInt(daysInMonth)).Round(0).IntPart(),
		RevenueGrowth: growthPercent(cur.TotalRevenue, prev.TotalRevenue),
		OrdersGrowth:  growthPercent(cur.OrderCount, prev.OrderCount),
		TodayByStatus: byStatus,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, kpiCacheKey, raw, kpiCacheTTL); err != nil {
				log.Printf("ERROR: kpi cache set: %v", err)
			}
		}
	}
	return result, nil
}

// growthPercent is (cur-prev)/prev as a percentage, rounded to one decimal.
// A zero previous value yields 0, not an error or infinity.
func growthPercent(cur, prev int64) float64 {
	if prev == 0 {
		return 0
	}
	pct := decimal.NewFromInt(cur - prev).
		Div(decimal.NewFromInt(prev)).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	f, _ := pct.Float64()
	return f
}

// AnalyticsPoint is one bucket of the order-volume series.
type AnalyticsPoint struct {
	Period string `json:"period"`
	Count  int64  `json:"count"`
}

// Analytics buckets all orders by creation time. Modes: "day" (YYYY-MM-DD),
// "week" (the Sunday starting the week), "month" (YYYY-MM).
func (s *DashboardService) Analytics(ctx context.Context, mode string) ([]AnalyticsPoint, error) {
	if mode != "day" && mode != "week" && mode != "month" {
		return nil, ErrInvalidAnalyticsMode
	}

	orders, err := s.store.ListOrdersForAnalytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	buckets := make(map[string]int64)
	for _, o := range orders {
		buckets[bucketKey(o.CreatedAt, mode)]++
	}

	points := make([]AnalyticsPoint, 0, len(buckets))
	for period, count := range buckets {
		points = append(points, AnalyticsPoint{Period: period, Count: count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period < points[j].Period })
	return points, nil
}

func bucketKey(t time.Time, mode string) string {
	switch mode {
	case "week":
		// weeks start on Sunday
		sunday := t.AddDate(0, 0, -int(t.Weekday()))
		return sunday.Format("2006-01-02")
	case "month":
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}
