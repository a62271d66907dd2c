package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_code, customer_name, table_id, status,
	payment_token, gateway_ref, paid_amount, paid_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.CustomerName,
		&o.TableID,
		&o.Status,
		&o.PaymentToken,
		&o.GatewayRef,
		&o.PaidAmount,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	OrderCode    string
	CustomerName string
	TableID      uuid.UUID
	Status       string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_code, customer_name, table_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		arg.OrderCode, arg.CustomerName, arg.TableID, arg.Status,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListOrdersRow is an order joined with its table's name for list views.
type ListOrdersRow struct {
	Order
	TableName string
}

type ListOrdersParams struct {
	Status pgtype.Text
	Search pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.id, o.order_code, o.customer_name, o.table_id, o.status,
		       o.payment_token, o.gateway_ref, o.paid_amount, o.paid_at,
		       o.created_at, o.updated_at, t.name
		FROM orders o
		JOIN tables t ON t.id = o.table_id
		WHERE ($1::text IS NULL OR o.status = $1)
		  AND ($2::text IS NULL OR o.order_code ILIKE '%' || $2 || '%' OR o.customer_name ILIKE '%' || $2 || '%')
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.Status, arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListOrdersRow
	for rows.Next() {
		var r ListOrdersRow
		if err := rows.Scan(
			&r.ID, &r.OrderCode, &r.CustomerName, &r.TableID, &r.Status,
			&r.PaymentToken, &r.GatewayRef, &r.PaidAmount, &r.PaidAt,
			&r.CreatedAt, &r.UpdatedAt, &r.TableName,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CountOrdersParams struct {
	Status pgtype.Text
	Search pgtype.Text
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR order_code ILIKE '%' || $2 || '%' OR customer_name ILIKE '%' || $2 || '%')`,
		arg.Status, arg.Search,
	).Scan(&count)
	return count, err
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Status,
	)
	return scanOrder(row)
}

// ServeOrderIfAllMenusServed sets the parent order to served iff no line
// remains outside {served, cancelled} and at least one line is served. The
// whole check-and-set is a single statement, so two lines reaching served
// concurrently cannot both observe a stale "not yet" snapshot. Orders already
// paid or cancelled are never touched. Returns the number of rows updated
// (0 or 1); 0 with a nil error means the cascade simply did not fire.
func (q *Queries) ServeOrderIfAllMenusServed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE orders
		SET status = 'served', updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('paid', 'cancelled')
		  AND NOT EXISTS (
			SELECT 1 FROM order_menus
			WHERE order_id = $1 AND status NOT IN ('served', 'cancelled')
		  )
		  AND EXISTS (
			SELECT 1 FROM order_menus
			WHERE order_id = $1 AND status = 'served'
		  )`,
		orderID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type SetPaymentSessionParams struct {
	ID           uuid.UUID
	PaymentToken string
	GatewayRef   string
}

func (q *Queries) SetPaymentSession(ctx context.Context, arg SetPaymentSessionParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET payment_token = $2, gateway_ref = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.PaymentToken, arg.GatewayRef,
	)
	return scanOrder(row)
}

type SettleOrderParams struct {
	GatewayRef string
	PaidAmount int64
}

// SettleOrder marks the order matching the gateway transaction reference as
// paid. The paid_at IS NULL guard keys settlement on the unique reference:
// a replayed notification matches zero rows and is a no-op regardless of the
// order's current status. Returns pgx.ErrNoRows when nothing was settled.
func (q *Queries) SettleOrder(ctx context.Context, arg SettleOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'paid', paid_amount = $2, paid_at = now(), updated_at = now()
		WHERE gateway_ref = $1 AND paid_at IS NULL
		RETURNING `+orderColumns,
		arg.GatewayRef, arg.PaidAmount,
	)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the rest of the transaction.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR NO KEY UPDATE`, id)
	return scanOrder(row)
}
