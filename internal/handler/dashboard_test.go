package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mycafe-pos/api/internal/handler"
	"github.com/mycafe-pos/api/internal/service"
)

// --- Mock service ---

type mockDashboardServicer struct {
	kpiFn       func(ctx context.Context) (*service.KPIResult, error)
	analyticsFn func(ctx context.Context, mode string) ([]service.AnalyticsPoint, error)
}

func (m *mockDashboardServicer) KPI(ctx context.Context) (*service.KPIResult, error) {
	return m.kpiFn(ctx)
}

func (m *mockDashboardServicer) Analytics(ctx context.Context, mode string) ([]service.AnalyticsPoint, error) {
	return m.analyticsFn(ctx, mode)
}

func setupDashboardRouter(svc handler.DashboardServicer) *chi.Mux {
	h := handler.NewDashboardHandler(svc)
	r := chi.NewRouter()
	r.Route("/dashboard", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestDashboardKPI(t *testing.T) {
	svc := &mockDashboardServicer{
		kpiFn: func(_ context.Context) (*service.KPIResult, error) {
			return &service.KPIResult{
				TotalRevenue:     3100000,
				TotalOrders:      31,
				AvgRevenuePerDay: 100000,
				RevenueGrowth:    55.0,
				OrdersGrowth:     50.0,
				TodayByStatus:    map[string]int64{"confirmed": 4},
			}, nil
		},
	}
	router := setupDashboardRouter(svc)

	rr := doRequest(t, router, "GET", "/dashboard/kpi", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["total_revenue"] != float64(3100000) {
		t.Errorf("total_revenue: got %v, want 3100000", resp["total_revenue"])
	}
	if resp["revenue_growth"] != 55.0 {
		t.Errorf("revenue_growth: got %v, want 55", resp["revenue_growth"])
	}
	byStatus, ok := resp["today_by_status"].(map[string]interface{})
	if !ok || byStatus["confirmed"] != float64(4) {
		t.Errorf("today_by_status: got %v", resp["today_by_status"])
	}
}

func TestDashboardAnalytics_DefaultsToDay(t *testing.T) {
	var gotMode string
	svc := &mockDashboardServicer{
		analyticsFn: func(_ context.Context, mode string) ([]service.AnalyticsPoint, error) {
			gotMode = mode
			return []service.AnalyticsPoint{{Period: "2026-08-29", Count: 3}}, nil
		},
	}
	router := setupDashboardRouter(svc)

	rr := doRequest(t, router, "GET", "/dashboard/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if gotMode != "day" {
		t.Errorf("mode: got %s, want day", gotMode)
	}

	resp := decodeResponse(t, rr)
	points := resp["points"].([]interface{})
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	first := points[0].(map[string]interface{})
	if first["period"] != "2026-08-29" || first["count"] != float64(3) {
		t.Errorf("point: got %v", first)
	}
}

func TestDashboardAnalytics_InvalidMode(t *testing.T) {
	svc := &mockDashboardServicer{
		analyticsFn: func(_ context.Context, _ string) ([]service.AnalyticsPoint, error) {
			return nil, service.ErrInvalidAnalyticsMode
		},
	}
	router := setupDashboardRouter(svc)

	rr := doRequest(t, router, "GET", "/dashboard/analytics?mode=year", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
