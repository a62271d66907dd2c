package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mycafe-pos/api/internal/service"
)

// DashboardServicer defines the service methods needed by dashboard handlers.
// Satisfied by *service.DashboardService.
type DashboardServicer interface {
	KPI(ctx context.Context) (*service.KPIResult, error)
	Analytics(ctx context.Context, mode string) ([]service.AnalyticsPoint, error)
}

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	svc DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc DashboardServicer) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// RegisterRoutes registers dashboard endpoints on the given Chi router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kpi", h.KPI)
	r.Get("/analytics", h.Analytics)
}

// KPI handles GET /dashboard/kpi.
func (h *DashboardHandler) KPI(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.KPI(r.Context())
	if err != nil {
		log.Printf("ERROR: dashboard kpi: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Analytics handles GET /dashboard/analytics?mode=day|week|month.
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "day"
	}

	points, err := h.svc.Analytics(r.Context(), mode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAnalyticsMode) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: dashboard analytics: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]service.AnalyticsPoint{"points": points})
}
