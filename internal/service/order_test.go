package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getTableFn              func(ctx context.Context, id uuid.UUID) (database.Table, error)
	updateTableStatusFn     func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	getMenuFn               func(ctx context.Context, id uuid.UUID) (database.Menu, error)
	createOrderFn           func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderForUpdateFn     func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn     func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	createOrderMenuFn       func(ctx context.Context, arg database.CreateOrderMenuParams) (database.OrderMenu, error)
	getOrderMenuFn          func(ctx context.Context, id uuid.UUID) (database.OrderMenu, error)
	deleteOrderMenuFn       func(ctx context.Context, id uuid.UUID) error
	updateOrderMenuStatusFn func(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error)
	serveOrderFn            func(ctx context.Context, orderID uuid.UUID) (int64, error)
}

func (m *mockOrderStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.getTableFn(ctx, id)
}
func (m *mockOrderStore) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
	return m.updateTableStatusFn(ctx, arg)
}
func (m *mockOrderStore) GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error) {
	return m.getMenuFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderMenu(ctx context.Context, arg database.CreateOrderMenuParams) (database.OrderMenu, error) {
	return m.createOrderMenuFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderMenu(ctx context.Context, id uuid.UUID) (database.OrderMenu, error) {
	return m.getOrderMenuFn(ctx, id)
}
func (m *mockOrderStore) DeleteOrderMenu(ctx context.Context, id uuid.UUID) error {
	return m.deleteOrderMenuFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderMenuStatus(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error) {
	return m.updateOrderMenuStatusFn(ctx, arg)
}
func (m *mockOrderStore) ServeOrderIfAllMenusServed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return m.serveOrderFn(ctx, orderID)
}

// --- Test helpers ---

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockOrderStore echoing back what it is given.
// Individual tests override the functions they care about.
func defaultStore(tableID, menuID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getTableFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			if id == tableID {
				return database.Table{ID: tableID, Name: "T1", Capacity: 4, Status: enum.TableStatusAvailable}, nil
			}
			return database.Table{}, pgx.ErrNoRows
		},
		updateTableStatusFn: func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
			return database.Table{ID: arg.ID, Status: arg.Status}, nil
		},
		getMenuFn: func(ctx context.Context, id uuid.UUID) (database.Menu, error) {
			if id == menuID {
				return database.Menu{ID: menuID, Name: "Kopi Susu", Price: 20000, IsAvailable: true}, nil
			}
			return database.Menu{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:           uuid.New(),
				OrderCode:    arg.OrderCode,
				CustomerName: arg.CustomerName,
				TableID:      arg.TableID,
				Status:       arg.Status,
			}, nil
		},
		createOrderMenuFn: func(ctx context.Context, arg database.CreateOrderMenuParams) (database.OrderMenu, error) {
			return database.OrderMenu{
				ID:       uuid.New(),
				OrderID:  arg.OrderID,
				MenuID:   arg.MenuID,
				Quantity: arg.Quantity,
				Notes:    arg.Notes,
				Status:   arg.Status,
			}, nil
		},
	}
}

// --- CreateOrder ---

func TestCreateOrder_Success(t *testing.T) {
	tableID := uuid.New()
	menuID := uuid.New()
	store := defaultStore(tableID, menuID)

	var claimedStatus string
	store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
		claimedStatus = arg.Status
		return database.Table{ID: arg.ID, Status: arg.Status}, nil
	}

	svc, tx := newTestService(store)
	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      tableID,
		Menus: []CreateOrderMenuRequest{
			{MenuID: menuID.String(), Quantity: 2, Notes: "less sugar"},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if !strings.HasPrefix(result.Order.OrderCode, "MYCAFE-") {
		t.Errorf("order code = %q, want MYCAFE- prefix", result.Order.OrderCode)
	}
	if result.Order.Status != enum.OrderStatusDraft {
		t.Errorf("order status = %q, want draft", result.Order.Status)
	}
	if claimedStatus != enum.TableStatusReserved {
		t.Errorf("table status = %q, want reserved", claimedStatus)
	}
	if len(result.Menus) != 1 {
		t.Fatalf("got %d lines, want 1", len(result.Menus))
	}
	if result.Menus[0].Status != enum.OrderMenuStatusPending {
		t.Errorf("line status = %q, want pending", result.Menus[0].Status)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestCreateOrder_TableNotFound(t *testing.T) {
	store := defaultStore(uuid.New(), uuid.New())
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      uuid.New(),
	})
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("err = %v, want ErrTableNotFound", err)
	}
}

func TestCreateOrder_TableInMaintenance(t *testing.T) {
	tableID := uuid.New()
	store := defaultStore(tableID, uuid.New())
	store.getTableFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		return database.Table{ID: tableID, Status: enum.TableStatusMaintenance}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      tableID,
	})
	if !errors.Is(err, ErrTableUnavailable) {
		t.Errorf("err = %v, want ErrTableUnavailable", err)
	}
}

func TestCreateOrder_TableAlreadyClaimed(t *testing.T) {
	tableID := uuid.New()
	store := defaultStore(tableID, uuid.New())
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_active_table_idx"}
	}
	svc, tx := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      tableID,
	})
	if !errors.Is(err, ErrTableUnavailable) {
		t.Errorf("err = %v, want ErrTableUnavailable", err)
	}
	if tx.committed {
		t.Error("transaction should not have been committed")
	}
}

func TestCreateOrder_MenuUnavailable(t *testing.T) {
	tableID := uuid.New()
	menuID := uuid.New()
	store := defaultStore(tableID, menuID)
	store.getMenuFn = func(ctx context.Context, id uuid.UUID) (database.Menu, error) {
		return database.Menu{ID: menuID, IsAvailable: false}, nil
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      tableID,
		Menus:        []CreateOrderMenuRequest{{MenuID: menuID.String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrMenuUnavailable) {
		t.Errorf("err = %v, want ErrMenuUnavailable", err)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	tableID := uuid.New()
	menuID := uuid.New()
	svc, _ := newTestService(defaultStore(tableID, menuID))

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Budi",
		TableID:      tableID,
		Menus:        []CreateOrderMenuRequest{{MenuID: menuID.String(), Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("err = %v, want ErrInvalidQuantity", err)
	}
}

// --- UpdateOrderStatus ---

func TestUpdateOrderStatus_MovesOrderAndTableTogether(t *testing.T) {
	orderID := uuid.New()
	tableID := uuid.New()

	cases := []struct {
		orderStatus string
		tableStatus string
	}{
		{enum.OrderStatusDraft, enum.TableStatusReserved},
		{enum.OrderStatusConfirmed, enum.TableStatusOccupied},
		{enum.OrderStatusServed, enum.TableStatusOccupied},
		{enum.OrderStatusPaid, enum.TableStatusAvailable},
		{enum.OrderStatusCancelled, enum.TableStatusAvailable},
	}

	for _, tc := range cases {
		t.Run(tc.orderStatus, func(t *testing.T) {
			store := defaultStore(tableID, uuid.New())
			store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
				return database.Order{ID: orderID, TableID: tableID, Status: enum.OrderStatusConfirmed}, nil
			}

			var gotOrder database.UpdateOrderStatusParams
			var gotTable database.UpdateTableStatusParams
			store.updateOrderStatusFn = func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
				gotOrder = arg
				return database.Order{ID: arg.ID, TableID: tableID, Status: arg.Status}, nil
			}
			store.updateTableStatusFn = func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
				gotTable = arg
				return database.Table{ID: arg.ID, Status: arg.Status}, nil
			}

			svc, tx := newTestService(store)
			order, err := svc.UpdateOrderStatus(context.Background(), orderID, tc.orderStatus)
			if err != nil {
				t.Fatalf("UpdateOrderStatus: %v", err)
			}

			if order.Status != tc.orderStatus {
				t.Errorf("order status = %q, want %q", order.Status, tc.orderStatus)
			}
			if gotOrder.Status != tc.orderStatus {
				t.Errorf("persisted order status = %q, want %q", gotOrder.Status, tc.orderStatus)
			}
			if gotTable.ID != tableID || gotTable.Status != tc.tableStatus {
				t.Errorf("table update = %+v, want id=%s status=%q", gotTable, tableID, tc.tableStatus)
			}
			if !tx.committed {
				t.Error("transaction was not committed")
			}
		})
	}
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	called := false
	store := &mockOrderStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			called = true
			return database.Order{}, nil
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateOrderStatus(context.Background(), uuid.New(), "done")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if called {
		t.Error("store should not be touched for an invalid status")
	}
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	store := &mockOrderStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.UpdateOrderStatus(context.Background(), uuid.New(), enum.OrderStatusPaid)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}

// --- UpdateOrderMenuStatus ---

func TestUpdateOrderMenuStatus_CascadesWhenServed(t *testing.T) {
	orderID := uuid.New()
	lineID := uuid.New()

	var cascadeOrderID uuid.UUID
	store := &mockOrderStore{
		updateOrderMenuStatusFn: func(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error) {
			return database.OrderMenu{ID: arg.ID, OrderID: orderID, Status: arg.Status}, nil
		},
		serveOrderFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			cascadeOrderID = id
			return 1, nil
		},
	}
	svc, tx := newTestService(store)

	result, err := svc.UpdateOrderMenuStatus(context.Background(), lineID, enum.OrderMenuStatusServed)
	if err != nil {
		t.Fatalf("UpdateOrderMenuStatus: %v", err)
	}
	if !result.OrderCascaded {
		t.Error("expected cascade to fire")
	}
	if cascadeOrderID != orderID {
		t.Errorf("cascade ran for order %s, want %s", cascadeOrderID, orderID)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestUpdateOrderMenuStatus_NoCascadeWhileSiblingsPending(t *testing.T) {
	store := &mockOrderStore{
		updateOrderMenuStatusFn: func(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error) {
			return database.OrderMenu{ID: arg.ID, OrderID: uuid.New(), Status: arg.Status}, nil
		},
		serveOrderFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, nil
		},
	}
	svc, _ := newTestService(store)

	result, err := svc.UpdateOrderMenuStatus(context.Background(), uuid.New(), enum.OrderMenuStatusServed)
	if err != nil {
		t.Fatalf("UpdateOrderMenuStatus: %v", err)
	}
	if result.OrderCascaded {
		t.Error("cascade reported fired, want no-op")
	}
}

func TestUpdateOrderMenuStatus_NoCascadeCheckForOtherStatuses(t *testing.T) {
	store := &mockOrderStore{
		updateOrderMenuStatusFn: func(ctx context.Context, arg database.UpdateOrderMenuStatusParams) (database.OrderMenu, error) {
			return database.OrderMenu{ID: arg.ID, OrderID: uuid.New(), Status: arg.Status}, nil
		},
		serveOrderFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			t.Fatal("cascade should not run for a non-served target")
			return 0, nil
		},
	}
	svc, _ := newTestService(store)

	if _, err := svc.UpdateOrderMenuStatus(context.Background(), uuid.New(), enum.OrderMenuStatusPreparing); err != nil {
		t.Fatalf("UpdateOrderMenuStatus: %v", err)
	}
}

func TestUpdateOrderMenuStatus_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(&mockOrderStore{})

	_, err := svc.UpdateOrderMenuStatus(context.Background(), uuid.New(), "finished")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
}

// --- AddOrderMenus ---

func TestAddOrderMenus_Success(t *testing.T) {
	orderID := uuid.New()
	menuID := uuid.New()
	store := defaultStore(uuid.New(), menuID)
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusConfirmed}, nil
	}
	svc, _ := newTestService(store)

	lines, err := svc.AddOrderMenus(context.Background(), orderID, []CreateOrderMenuRequest{
		{MenuID: menuID.String(), Quantity: 3},
	})
	if err != nil {
		t.Fatalf("AddOrderMenus: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Errorf("lines = %+v, want one line with quantity 3", lines)
	}
}

// --- RemoveOrderMenu ---

func TestRemoveOrderMenu_Success(t *testing.T) {
	orderID := uuid.New()
	lineID := uuid.New()

	var deleted uuid.UUID
	store := defaultStore(uuid.New(), uuid.New())
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusDraft}, nil
	}
	store.getOrderMenuFn = func(ctx context.Context, id uuid.UUID) (database.OrderMenu, error) {
		return database.OrderMenu{ID: lineID, OrderID: orderID}, nil
	}
	store.deleteOrderMenuFn = func(ctx context.Context, id uuid.UUID) error {
		deleted = id
		return nil
	}
	svc, tx := newTestService(store)

	if err := svc.RemoveOrderMenu(context.Background(), orderID, lineID); err != nil {
		t.Fatalf("RemoveOrderMenu: %v", err)
	}
	if deleted != lineID {
		t.Errorf("deleted line %s, want %s", deleted, lineID)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestRemoveOrderMenu_LineBelongsToAnotherOrder(t *testing.T) {
	orderID := uuid.New()
	store := defaultStore(uuid.New(), uuid.New())
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusDraft}, nil
	}
	store.getOrderMenuFn = func(ctx context.Context, id uuid.UUID) (database.OrderMenu, error) {
		return database.OrderMenu{ID: id, OrderID: uuid.New()}, nil
	}
	store.deleteOrderMenuFn = func(ctx context.Context, id uuid.UUID) error {
		t.Fatal("delete should not run for a foreign line")
		return nil
	}
	svc, _ := newTestService(store)

	err := svc.RemoveOrderMenu(context.Background(), orderID, uuid.New())
	if !errors.Is(err, ErrOrderMenuNotFound) {
		t.Errorf("err = %v, want ErrOrderMenuNotFound", err)
	}
}

func TestRemoveOrderMenu_OrderNotEditable(t *testing.T) {
	store := defaultStore(uuid.New(), uuid.New())
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: id, Status: enum.OrderStatusServed}, nil
	}
	svc, _ := newTestService(store)

	err := svc.RemoveOrderMenu(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrOrderNotEditable) {
		t.Errorf("err = %v, want ErrOrderNotEditable", err)
	}
}

func TestAddOrderMenus_OrderNotEditable(t *testing.T) {
	for _, status := range []string{enum.OrderStatusServed, enum.OrderStatusPaid, enum.OrderStatusCancelled} {
		t.Run(status, func(t *testing.T) {
			store := defaultStore(uuid.New(), uuid.New())
			store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
				return database.Order{ID: id, Status: status}, nil
			}
			svc, _ := newTestService(store)

			_, err := svc.AddOrderMenus(context.Background(), uuid.New(), []CreateOrderMenuRequest{
				{MenuID: uuid.New().String(), Quantity: 1},
			})
			if !errors.Is(err, ErrOrderNotEditable) {
				t.Errorf("err = %v, want ErrOrderNotEditable", err)
			}
		})
	}
}
