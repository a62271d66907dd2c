package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaidOrdersSummaryRow aggregates settled revenue for a date window.
type PaidOrdersSummaryRow struct {
	TotalRevenue int64
	OrderCount   int64
}

type PaidOrdersSummaryParams struct {
	From time.Time
	To   time.Time
}

// PaidOrdersSummary sums paid_amount over orders settled inside [From, To).
// Only status = paid rows with a paid_at stamp count toward revenue.
func (q *Queries) PaidOrdersSummary(ctx context.Context, arg PaidOrdersSummaryParams) (PaidOrdersSummaryRow, error) {
	var r PaidOrdersSummaryRow
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(paid_amount), 0), COUNT(*)
		FROM orders
		WHERE status = 'paid'
		  AND paid_at IS NOT NULL
		  AND paid_at >= $1 AND paid_at < $2`,
		arg.From, arg.To,
	).Scan(&r.TotalRevenue, &r.OrderCount)
	return r, err
}

// OrderAnalyticsRow is the minimal projection for order-volume charts.
type OrderAnalyticsRow struct {
	ID        uuid.UUID
	Status    string
	CreatedAt time.Time
}

func (q *Queries) ListOrdersForAnalytics(ctx context.Context) ([]OrderAnalyticsRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, status, created_at
		FROM orders
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderAnalyticsRow
	for rows.Next() {
		var r OrderAnalyticsRow
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OrderStatusCountRow is one status bucket with its order count.
type OrderStatusCountRow struct {
	Status string
	Count  int64
}

// CountOrdersByStatusSince buckets orders created at or after the given
// instant by status; feeds the today-summary card.
func (q *Queries) CountOrdersByStatusSince(ctx context.Context, since time.Time) ([]OrderStatusCountRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM orders
		WHERE created_at >= $1
		GROUP BY status`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderStatusCountRow
	for rows.Next() {
		var r OrderStatusCountRow
		if err := rows.Scan(&r.Status, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
