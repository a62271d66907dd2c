package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the payment service.
var (
	ErrOrderNotServed    = errors.New("order must be served before payment")
	ErrPaymentInitiation = errors.New("payment gateway rejected the transaction")
)

// SnapClient creates hosted-checkout transactions at the payment gateway.
// Satisfied by snap.Client from midtrans-go.
type SnapClient interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// PaymentStore defines the DB methods the payment service needs.
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderMenuLines(ctx context.Context, orderID uuid.UUID) ([]database.OrderMenuLine, error)
	SetPaymentSession(ctx context.Context, arg database.SetPaymentSessionParams) (database.Order, error)
	SettleOrder(ctx context.Context, arg database.SettleOrderParams) (database.Order, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentService opens gateway checkout sessions and settles orders from
// gateway notifications.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	snap     SnapClient
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, snapClient SnapClient) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore, snap: snapClient, now: time.Now}
}

// PaymentSession is a created checkout session.
type PaymentSession struct {
	Order       database.Order
	Token       string
	RedirectURL string
	GrandTotal  int64
}

// GeneratePayment opens a gateway transaction for the order's grand total.
// The order must be served. The gateway reference is the order code suffixed
// with the current unix milliseconds, so a failed attempt can be retried with
// a fresh reference. Nothing is persisted when the gateway call fails.
func (s *PaymentService) GeneratePayment(ctx context.Context, orderID uuid.UUID) (*PaymentSession, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusServed {
		return nil, ErrOrderNotServed
	}

	lines, err := store.ListOrderMenuLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	pricing := CalculatePricing(lines)

	gatewayRef := fmt.Sprintf("%s-%d", order.OrderCode, s.now().UnixMilli())

	resp, midtransErr := s.snap.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  gatewayRef,
			GrossAmt: pricing.GrandTotal,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: order.CustomerName,
		},
	})
	if midtransErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiation, midtransErr.Message)
	}

	updated, err := store.SetPaymentSession(ctx, database.SetPaymentSessionParams{
		ID:           orderID,
		PaymentToken: resp.Token,
		GatewayRef:   gatewayRef,
	})
	if err != nil {
		return nil, fmt.Errorf("save payment session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &PaymentSession{
		Order:       updated,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		GrandTotal:  pricing.GrandTotal,
	}, nil
}

// Notification is the gateway's server-to-server payment notification. The
// transaction reference arrives as order_id or midtrans_order_id depending
// on the integration; whichever key carries a value wins.
type Notification struct {
	OrderID           string `json:"order_id"`
	MidtransOrderID   string `json:"midtrans_order_id"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       string `json:"gross_amount"`
}

// Ref returns the gateway transaction reference.
func (n Notification) Ref() string {
	if n.OrderID != "" {
		return n.OrderID
	}
	return n.MidtransOrderID
}

// HandleNotification settles the order a settlement notification refers to.
// Non-settlement statuses are acknowledged and ignored, as is a settlement
// whose reference matches no unsettled order (replays included). Returns the
// settled order, or nil when the notification was a no-op.
func (s *PaymentService) HandleNotification(ctx context.Context, n Notification) (*database.Order, error) {
	if n.TransactionStatus != "settlement" {
		return nil, nil
	}

	var paidAmount int64
	if n.GrossAmount != "" {
		amount, err := decimal.NewFromString(n.GrossAmount)
		if err != nil {
			return nil, fmt.Errorf("parse gross_amount: %w", err)
		}
		paidAmount = amount.Round(0).IntPart()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.SettleOrder(ctx, database.SettleOrderParams{
		GatewayRef: n.Ref(),
		PaidAmount: paidAmount,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("settle order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &order, nil
}

// NewSnapClient builds the real gateway client for the given environment.
func NewSnapClient(serverKey, env string) SnapClient {
	midtransEnv := midtrans.Sandbox
	if env == "production" {
		midtransEnv = midtrans.Production
	}
	var c snap.Client
	c.New(serverKey, midtransEnv)
	return &c
}
