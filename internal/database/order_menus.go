package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderMenuColumns = `id, order_id, menu_id, quantity, notes, status, created_at, updated_at`

func scanOrderMenu(row interface{ Scan(...any) error }) (OrderMenu, error) {
	var om OrderMenu
	err := row.Scan(
		&om.ID,
		&om.OrderID,
		&om.MenuID,
		&om.Quantity,
		&om.Notes,
		&om.Status,
		&om.CreatedAt,
		&om.UpdatedAt,
	)
	return om, err
}

type CreateOrderMenuParams struct {
	OrderID  uuid.UUID
	MenuID   uuid.UUID
	Quantity int32
	Notes    string
	Status   string
}

func (q *Queries) CreateOrderMenu(ctx context.Context, arg CreateOrderMenuParams) (OrderMenu, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_menus (order_id, menu_id, quantity, notes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+orderMenuColumns,
		arg.OrderID, arg.MenuID, arg.Quantity, arg.Notes, arg.Status,
	)
	return scanOrderMenu(row)
}

func (q *Queries) GetOrderMenu(ctx context.Context, id uuid.UUID) (OrderMenu, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderMenuColumns+` FROM order_menus WHERE id = $1`, id)
	return scanOrderMenu(row)
}

// ListOrderMenusRow is an order line joined with its menu for detail views.
type ListOrderMenusRow struct {
	OrderMenu
	MenuName  string
	MenuPrice int64
}

type ListOrderMenusParams struct {
	OrderID uuid.UUID
	Status  pgtype.Text
	Search  pgtype.Text
	Limit   int32
	Offset  int32
}

func (q *Queries) ListOrderMenus(ctx context.Context, arg ListOrderMenusParams) ([]ListOrderMenusRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT om.id, om.order_id, om.menu_id, om.quantity, om.notes, om.status,
		       om.created_at, om.updated_at, m.name, m.price
		FROM order_menus om
		JOIN menus m ON m.id = om.menu_id
		WHERE om.order_id = $1
		  AND ($2::text IS NULL OR om.status = $2)
		  AND ($3::text IS NULL OR om.notes ILIKE '%' || $3 || '%' OR m.name ILIKE '%' || $3 || '%')
		ORDER BY om.status, om.created_at
		LIMIT $4 OFFSET $5`,
		arg.OrderID, arg.Status, arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListOrderMenusRow
	for rows.Next() {
		var r ListOrderMenusRow
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.MenuID, &r.Quantity, &r.Notes, &r.Status,
			&r.CreatedAt, &r.UpdatedAt, &r.MenuName, &r.MenuPrice,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CountOrderMenusParams struct {
	OrderID uuid.UUID
	Status  pgtype.Text
	Search  pgtype.Text
}

func (q *Queries) CountOrderMenus(ctx context.Context, arg CountOrderMenusParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM order_menus om
		JOIN menus m ON m.id = om.menu_id
		WHERE om.order_id = $1
		  AND ($2::text IS NULL OR om.status = $2)
		  AND ($3::text IS NULL OR om.notes ILIKE '%' || $3 || '%' OR m.name ILIKE '%' || $3 || '%')`,
		arg.OrderID, arg.Status, arg.Search,
	).Scan(&count)
	return count, err
}

// OrderMenuLine is the pricing-calculator input: one line with the
// discount-adjusted unit price it is sold at.
type OrderMenuLine struct {
	MenuName  string
	UnitPrice int64
	Quantity  int32
	Status    string
}

// ListOrderMenuLines returns every line of the order, cancelled ones
// included; the pricing calculator deliberately does not filter.
func (q *Queries) ListOrderMenuLines(ctx context.Context, orderID uuid.UUID) ([]OrderMenuLine, error) {
	rows, err := q.db.Query(ctx, `
		SELECT m.name, m.price - m.discount, om.quantity, om.status
		FROM order_menus om
		JOIN menus m ON m.id = om.menu_id
		WHERE om.order_id = $1
		ORDER BY om.created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderMenuLine
	for rows.Next() {
		var l OrderMenuLine
		if err := rows.Scan(&l.MenuName, &l.UnitPrice, &l.Quantity, &l.Status); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type UpdateOrderMenuStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderMenuStatus(ctx context.Context, arg UpdateOrderMenuStatusParams) (OrderMenu, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE order_menus
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderMenuColumns,
		arg.ID, arg.Status,
	)
	return scanOrderMenu(row)
}

func (q *Queries) DeleteOrderMenu(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM order_menus WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// OrderMenusSummaryRow is one (order, status) bucket with its line count.
type OrderMenusSummaryRow struct {
	OrderID uuid.UUID
	Status  string
	Count   int64
}

// SummarizeOrderMenus groups line counts per status for a set of orders.
func (q *Queries) SummarizeOrderMenus(ctx context.Context, orderIDs []uuid.UUID) ([]OrderMenusSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT order_id, status, COUNT(*)
		FROM order_menus
		WHERE order_id = ANY($1)
		GROUP BY order_id, status`,
		orderIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderMenusSummaryRow
	for rows.Next() {
		var r OrderMenusSummaryRow
		if err := rows.Scan(&r.OrderID, &r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
