package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/events"
	"github.com/mycafe-pos/api/internal/service"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService.
type PaymentServicer interface {
	GeneratePayment(ctx context.Context, orderID uuid.UUID) (*service.PaymentSession, error)
	HandleNotification(ctx context.Context, n service.Notification) (*database.Order, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc      PaymentServicer
	hub      Broadcaster
	producer Publisher
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, hub Broadcaster, producer Publisher) *PaymentHandler {
	return &PaymentHandler{svc: svc, hub: hub, producer: producer}
}

// RegisterOrderRoutes registers the payment-generation endpoint under /orders.
func (h *PaymentHandler) RegisterOrderRoutes(r chi.Router) {
	r.Post("/{id}/payments", h.Generate)
}

// RegisterNotificationRoute registers the gateway webhook. The router mounts
// it outside the authenticated group; the gateway signs in with its own key,
// not a staff token.
func (h *PaymentHandler) RegisterNotificationRoute(r chi.Router) {
	r.Post("/payments/notification", h.Notification)
}

type paymentSessionResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderCode   string    `json:"order_code"`
	Token       string    `json:"token"`
	RedirectURL string    `json:"redirect_url"`
	GrandTotal  int64     `json:"grand_total"`
}

// Generate handles POST /orders/{id}/payments.
func (h *PaymentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	session, err := h.svc.GeneratePayment(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotServed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrPaymentInitiation):
			log.Printf("ERROR: payment gateway: %v", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: generate payment: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	notify(h.hub, "orders")

	writeJSON(w, http.StatusCreated, paymentSessionResponse{
		OrderID:     session.Order.ID,
		OrderCode:   session.Order.OrderCode,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
		GrandTotal:  session.GrandTotal,
	})
}

// Notification handles POST /payments/notification, the gateway webhook.
// Once the body parses, the response is always 200: the gateway retries
// non-2xx responses, and a replayed settlement is already a no-op.
func (h *PaymentHandler) Notification(w http.ResponseWriter, r *http.Request) {
	var n service.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.HandleNotification(r.Context(), n)
	if err != nil {
		log.Printf("ERROR: payment notification: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if order != nil {
		notify(h.hub, "orders")
		publish(h.producer, events.TopicOrderSettled, order.ID.String(),
			events.NewEnvelope("OrderSettled", events.OrderSettledPayload{
				OrderID:    order.ID.String(),
				OrderCode:  order.OrderCode,
				GatewayRef: order.GatewayRef.String,
				PaidAmount: order.PaidAmount.Int64,
			}))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
