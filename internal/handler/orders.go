package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
	"github.com/mycafe-pos/api/internal/events"
	"github.com/mycafe-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (database.Order, error)
	UpdateOrderMenuStatus(ctx context.Context, orderMenuID uuid.UUID, status string) (*service.UpdateOrderMenuStatusResult, error)
	AddOrderMenus(ctx context.Context, orderID uuid.UUID, menus []service.CreateOrderMenuRequest) ([]database.OrderMenu, error)
	RemoveOrderMenu(ctx context.Context, orderID, orderMenuID uuid.UUID) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListOrderMenus(ctx context.Context, arg database.ListOrderMenusParams) ([]database.ListOrderMenusRow, error)
	CountOrderMenus(ctx context.Context, arg database.CountOrderMenusParams) (int64, error)
	ListOrderMenuLines(ctx context.Context, orderID uuid.UUID) ([]database.OrderMenuLine, error)
	SummarizeOrderMenus(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderMenusSummaryRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	hub      Broadcaster
	producer Publisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster, producer Publisher) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub, producer: producer}
}

// RegisterRoutes registers all order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	h.RegisterReadRoutes(r)
	h.RegisterWriteRoutes(r)
}

// RegisterReadRoutes registers the read-only order endpoints; the router
// exposes these to every staff role, kitchen included.
func (h *OrderHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/menus", h.ListMenus)
	r.Get("/{id}/pricing", h.Pricing)
}

// RegisterWriteRoutes registers the order mutation endpoints, minus the
// line-status one kitchen staff need.
func (h *OrderHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/menus", h.AddMenus)
	r.Delete("/{id}/menus/{orderMenuID}", h.RemoveMenu)
}

// RegisterMenuStatusRoute registers the line-status endpoint separately so
// the router can give kitchen staff this one write without the rest.
func (h *OrderHandler) RegisterMenuStatusRoute(r chi.Router) {
	r.Patch("/{id}/menus/{orderMenuID}/status", h.UpdateMenuStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName string                   `json:"customer_name"`
	TableID      string                   `json:"table_id"`
	Menus        []createOrderMenuRequest `json:"menus"`
}

type createOrderMenuRequest struct {
	MenuID   string `json:"menu_id"`
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

type orderResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderCode    string     `json:"order_code"`
	CustomerName string     `json:"customer_name"`
	TableID      uuid.UUID  `json:"table_id"`
	TableName    string     `json:"table_name,omitempty"`
	Status       string     `json:"status"`
	PaymentToken *string    `json:"payment_token"`
	PaidAmount   *int64     `json:"paid_amount"`
	PaidAt       *time.Time `json:"paid_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type orderMenuResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	MenuID    uuid.UUID `json:"menu_id"`
	MenuName  string    `json:"menu_name,omitempty"`
	MenuPrice int64     `json:"menu_price,omitempty"`
	Quantity  int32     `json:"quantity"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type orderDetailResponse struct {
	orderResponse
	Menus []orderMenuResponse `json:"menus"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type orderMenuListResponse struct {
	Menus  []orderMenuResponse `json:"menus"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderSummaryEntry struct {
	OrderID  uuid.UUID        `json:"order_id"`
	ByStatus map[string]int64 `json:"by_status"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OrderCode:    o.OrderCode,
		CustomerName: o.CustomerName,
		TableID:      o.TableID,
		Status:       o.Status,
		PaymentToken: textToPtr(o.PaymentToken),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.PaidAmount.Valid {
		amount := o.PaidAmount.Int64
		resp.PaidAmount = &amount
	}
	if o.PaidAt.Valid {
		paidAt := o.PaidAt.Time
		resp.PaidAt = &paidAt
	}
	return resp
}

func dbOrderMenuToResponse(om database.OrderMenu) orderMenuResponse {
	return orderMenuResponse{
		ID:        om.ID,
		OrderID:   om.OrderID,
		MenuID:    om.MenuID,
		Quantity:  om.Quantity,
		Notes:     om.Notes,
		Status:    om.Status,
		CreatedAt: om.CreatedAt,
		UpdatedAt: om.UpdatedAt,
	}
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.CustomerName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_name is required"})
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	menus := make([]service.CreateOrderMenuRequest, len(req.Menus))
	for i, m := range req.Menus {
		menus[i] = service.CreateOrderMenuRequest{
			MenuID:   m.MenuID,
			Quantity: m.Quantity,
			Notes:    m.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName: req.CustomerName,
		TableID:      tableID,
		Menus:        menus,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTableNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrTableUnavailable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isOrderValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "orders")
	notify(h.hub, "tables")
	publish(h.producer, events.TopicOrderCreated, result.Order.ID.String(),
		events.NewEnvelope("OrderCreated", events.OrderCreatedPayload{
			OrderID:      result.Order.ID.String(),
			OrderCode:    result.Order.OrderCode,
			CustomerName: result.Order.CustomerName,
			TableID:      result.Order.TableID.String(),
			Status:       result.Order.Status,
		}))

	resp := orderDetailResponse{orderResponse: dbOrderToResponse(result.Order)}
	resp.Menus = make([]orderMenuResponse, len(result.Menus))
	for i, om := range result.Menus {
		resp.Menus[i] = dbOrderMenuToResponse(om)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	status := textFilter(r, "status")
	if status.Valid && !enum.IsOrderStatus(status.String) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	search := textFilter(r, "search")

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Search: search,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountOrders(r.Context(), database.CountOrdersParams{Status: status, Search: search})
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o.Order)
		resp[i].TableName = o.TableName
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Total: total, Limit: limit, Offset: offset})
}

// Summary handles GET /orders/summary?ids=a,b,c. Returns per-order counts
// of lines by status; feeds the floor-view order cards.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ids is required"})
		return
	}

	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID: " + p})
			return
		}
		ids = append(ids, id)
	}

	rows, err := h.store.SummarizeOrderMenus(r.Context(), ids)
	if err != nil {
		log.Printf("ERROR: summarize order menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	byOrder := make(map[uuid.UUID]map[string]int64)
	for _, row := range rows {
		if byOrder[row.OrderID] == nil {
			byOrder[row.OrderID] = make(map[string]int64)
		}
		byOrder[row.OrderID][row.Status] = row.Count
	}

	// preserve request order; orders without lines get an empty map
	entries := make([]orderSummaryEntry, len(ids))
	for i, id := range ids {
		counts := byOrder[id]
		if counts == nil {
			counts = map[string]int64{}
		}
		entries[i] = orderSummaryEntry{OrderID: id, ByStatus: counts}
	}
	writeJSON(w, http.StatusOK, map[string][]orderSummaryEntry{"summaries": entries})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// an order's lines fit in one page; no pagination on the detail view
	menus, err := h.store.ListOrderMenus(r.Context(), database.ListOrderMenusParams{OrderID: id, Limit: 500})
	if err != nil {
		log.Printf("ERROR: list order menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{orderResponse: dbOrderToResponse(order)}
	resp.Menus = make([]orderMenuResponse, len(menus))
	for i, om := range menus {
		resp.Menus[i] = dbOrderMenuToResponse(om.OrderMenu)
		resp.Menus[i].MenuName = om.MenuName
		resp.Menus[i].MenuPrice = om.MenuPrice
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "orders")
	notify(h.hub, "tables")
	publish(h.producer, events.TopicOrderStatusChanged, order.ID.String(),
		events.NewEnvelope("OrderStatusChanged", events.OrderStatusChangedPayload{
			OrderID:   order.ID.String(),
			OrderCode: order.OrderCode,
			Status:    order.Status,
		}))

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateMenuStatus handles PATCH /orders/{id}/menus/{orderMenuID}/status.
func (h *OrderHandler) UpdateMenuStatus(w http.ResponseWriter, r *http.Request) {
	orderMenuID, err := uuid.Parse(chi.URLParam(r, "orderMenuID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order menu ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.UpdateOrderMenuStatus(r.Context(), orderMenuID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderMenuNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order menu status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "order_menus")
	if result.OrderCascaded {
		notify(h.hub, "orders")
	}
	publish(h.producer, events.TopicOrderStatusChanged, result.OrderMenu.OrderID.String(),
		events.NewEnvelope("OrderMenuStatusChanged", events.OrderStatusChangedPayload{
			OrderID:     result.OrderMenu.OrderID.String(),
			OrderMenuID: result.OrderMenu.ID.String(),
			MenuStatus:  result.OrderMenu.Status,
		}))

	writeJSON(w, http.StatusOK, map[string]any{
		"order_menu":     dbOrderMenuToResponse(result.OrderMenu),
		"order_cascaded": result.OrderCascaded,
	})
}

// AddMenus handles POST /orders/{id}/menus.
func (h *OrderHandler) AddMenus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req struct {
		Menus []createOrderMenuRequest `json:"menus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Menus) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menus are required"})
		return
	}

	menus := make([]service.CreateOrderMenuRequest, len(req.Menus))
	for i, m := range req.Menus {
		menus[i] = service.CreateOrderMenuRequest{MenuID: m.MenuID, Quantity: m.Quantity, Notes: m.Notes}
	}

	created, err := h.svc.AddOrderMenus(r.Context(), id, menus)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotEditable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case isOrderValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: add order menus: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "order_menus")

	resp := make([]orderMenuResponse, len(created))
	for i, om := range created {
		resp[i] = dbOrderMenuToResponse(om)
	}
	writeJSON(w, http.StatusCreated, map[string][]orderMenuResponse{"menus": resp})
}

// RemoveMenu handles DELETE /orders/{id}/menus/{orderMenuID}.
func (h *OrderHandler) RemoveMenu(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	orderMenuID, err := uuid.Parse(chi.URLParam(r, "orderMenuID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order menu ID"})
		return
	}

	if err := h.svc.RemoveOrderMenu(r.Context(), orderID, orderMenuID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrOrderMenuNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotEditable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: remove order menu: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "order_menus")
	w.WriteHeader(http.StatusNoContent)
}

// ListMenus handles GET /orders/{id}/menus.
func (h *OrderHandler) ListMenus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	limit, offset := parsePagination(r)

	status := textFilter(r, "status")
	if status.Valid && !enum.IsOrderMenuStatus(status.String) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	search := textFilter(r, "search")

	menus, err := h.store.ListOrderMenus(r.Context(), database.ListOrderMenusParams{
		OrderID: id,
		Status:  status,
		Search:  search,
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list order menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountOrderMenus(r.Context(), database.CountOrderMenusParams{
		OrderID: id,
		Status:  status,
		Search:  search,
	})
	if err != nil {
		log.Printf("ERROR: count order menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderMenuResponse, len(menus))
	for i, om := range menus {
		resp[i] = dbOrderMenuToResponse(om.OrderMenu)
		resp[i].MenuName = om.MenuName
		resp[i].MenuPrice = om.MenuPrice
	}
	writeJSON(w, http.StatusOK, orderMenuListResponse{Menus: resp, Total: total, Limit: limit, Offset: offset})
}

// Pricing handles GET /orders/{id}/pricing.
func (h *OrderHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if _, err := h.store.GetOrder(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines, err := h.store.ListOrderMenuLines(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, service.CalculatePricing(lines))
}

// --- Helpers ---

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuID) ||
		errors.Is(err, service.ErrMenuNotFound) ||
		errors.Is(err, service.ErrMenuUnavailable)
}
