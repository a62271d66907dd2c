package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderMenuNotFound = errors.New("order menu not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrTableUnavailable  = errors.New("table is not available")
	ErrOrderNotEditable  = errors.New("order can no longer be edited")
	ErrMenuNotFound      = errors.New("menu not found")
	ErrMenuUnavailable   = errors.New("menu is not available")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidMenuID     = errors.New("invalid menu_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order service needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateOrderMenu(ctx context.Context, arg database.CreateOrderMenuParams) (database.OrderMenu, error)
	GetOrderMenu(ctx context.Context, id uuid.UUID) (database.OrderMenu, error)
	DeleteOrderMenu(ctx context.Context, id uuid.UUID) error
	UpdateOrderMenuStatus(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error)
	ServeOrderIfAllMenusServed(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerName string
	TableID      uuid.UUID
	Menus        []CreateOrderMenuRequest
}

// CreateOrderMenuRequest is a single line in a new order.
type CreateOrderMenuRequest struct {
	MenuID   string
	Quantity int32
	Notes    string
}

// CreateOrderResult is the created order with its lines.
type CreateOrderResult struct {
	Order database.Order
	Menus []database.OrderMenu
}

// CreateOrder creates a draft order and claims its table in one transaction:
// the order row, its lines, and the table's status flip to reserved either
// all land or none do. A table already claimed by an active order surfaces
// as ErrTableUnavailable via the partial unique index on orders(table_id).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if table.Status == enum.TableStatusMaintenance {
		return nil, ErrTableUnavailable
	}

	orderCode := fmt.Sprintf("MYCAFE-%d", s.now().UnixMilli())

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderCode:    orderCode,
		CustomerName: req.CustomerName,
		TableID:      req.TableID,
		Status:       enum.OrderStatusDraft,
	})
	if err != nil {
		if isActiveOrderConflict(err) {
			return nil, ErrTableUnavailable
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	menus, err := s.insertMenus(ctx, store, order.ID, req.Menus)
	if err != nil {
		return nil, err
	}

	if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     req.TableID,
		Status: enum.TableStatusFor(order.Status),
	}); err != nil {
		return nil, fmt.Errorf("update table status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CreateOrderResult{Order: order, Menus: menus}, nil
}

// isActiveOrderConflict checks if the error is a unique constraint violation
// on the one-active-order-per-table partial index (pgconn error code 23505).
func isActiveOrderConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_active_table_idx"
	}
	return false
}

// UpdateOrderStatus moves the order to the target status and moves its table
// to the matching table status, both in one transaction. Any status in the
// order vocabulary is accepted as a target; anything else is rejected before
// any write.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (database.Order, error) {
	if !enum.IsOrderStatus(status) {
		return database.Order{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	order, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: status,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:     current.TableID,
		Status: enum.TableStatusFor(status),
	}); err != nil {
		return database.Order{}, fmt.Errorf("update table status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// UpdateOrderMenuStatusResult reports the updated line and whether moving it
// cascaded the parent order to served.
type UpdateOrderMenuStatusResult struct {
	OrderMenu     database.OrderMenu
	OrderCascaded bool
}

// UpdateOrderMenuStatus moves one order line to the target status. When the
// target is served and no sibling line remains outside {served, cancelled},
// the parent order is set to served in the same transaction. The cascade is
// idempotent: re-serving an already-served line reports success with no
// further effect.
func (s *OrderService) UpdateOrderMenuStatus(ctx context.Context, orderMenuID uuid.UUID, status string) (*UpdateOrderMenuStatusResult, error) {
	if !enum.IsOrderMenuStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	orderMenu, err := store.UpdateOrderMenuStatus(ctx, database.UpdateOrderMenuStatusParams{
		ID:     orderMenuID,
		Status: status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderMenuNotFound
		}
		return nil, fmt.Errorf("update order menu status: %w", err)
	}

	cascaded := false
	if status == enum.OrderMenuStatusServed {
		n, err := store.ServeOrderIfAllMenusServed(ctx, orderMenu.OrderID)
		if err != nil {
			return nil, fmt.Errorf("cascade order status: %w", err)
		}
		cascaded = n > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &UpdateOrderMenuStatusResult{OrderMenu: orderMenu, OrderCascaded: cascaded}, nil
}

// AddOrderMenus appends lines to an order that is still draft or confirmed.
func (s *OrderService) AddOrderMenus(ctx context.Context, orderID uuid.UUID, menus []CreateOrderMenuRequest) ([]database.OrderMenu, error) {
	if len(menus) == 0 {
		return nil, ErrInvalidQuantity
	}

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
	if order.Status != enum.OrderStatusDraft && order.Status != enum.OrderStatusConfirmed {
		return nil, ErrOrderNotEditable
	}

	created, err := s.insertMenus(ctx, store, orderID, menus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

// RemoveOrderMenu deletes one line from an order that is still draft or
// confirmed. Lines on orders further along stay put; the bill already
// accounts for them.
func (s *OrderService) RemoveOrderMenu(ctx context.Context, orderID, orderMenuID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusDraft && order.Status != enum.OrderStatusConfirmed {
		return ErrOrderNotEditable
	}

	line, err := store.GetOrderMenu(ctx, orderMenuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderMenuNotFound
		}
		return fmt.Errorf("get order menu: %w", err)
	}
	if line.OrderID != orderID {
		return ErrOrderMenuNotFound
	}

	if err := store.DeleteOrderMenu(ctx, orderMenuID); err != nil {
		return fmt.Errorf("delete order menu: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *OrderService) insertMenus(ctx context.Context, store OrderStore, orderID uuid.UUID, menus []CreateOrderMenuRequest) ([]database.OrderMenu, error) {
	var created []database.OrderMenu
	for i, m := range menus {
		if m.Quantity <= 0 {
			return nil, fmt.Errorf("menus[%d]: %w", i, ErrInvalidQuantity)
		}
		menuID, err := uuid.Parse(m.MenuID)
		if err != nil {
			return nil, fmt.Errorf("menus[%d]: %w", i, ErrInvalidMenuID)
		}

		menu, err := store.GetMenu(ctx, menuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("menus[%d]: %w", i, ErrMenuNotFound)
			}
			return nil, fmt.Errorf("menus[%d]: get menu: %w", i, err)
		}
		if !menu.IsAvailable {
			return nil, fmt.Errorf("menus[%d]: %w", i, ErrMenuUnavailable)
		}

		orderMenu, err := store.CreateOrderMenu(ctx, database.CreateOrderMenuParams{
			OrderID:  orderID,
			MenuID:   menuID,
			Quantity: m.Quantity,
			Notes:    m.Notes,
			Status:   enum.OrderMenuStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("menus[%d]: create order menu: %w", i, err)
		}
		created = append(created, orderMenu)
	}
	return created, nil
}
