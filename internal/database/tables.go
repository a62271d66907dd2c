package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, name, description, capacity, status, created_at, updated_at`

func scanTable(row interface{ Scan(...any) error }) (Table, error) {
	var t Table
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Capacity,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

type CreateTableParams struct {
	Name        string
	Description pgtype.Text
	Capacity    int32
	Status      string
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tables (name, description, capacity, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+tableColumns,
		arg.Name, arg.Description, arg.Capacity, arg.Status,
	)
	return scanTable(row)
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	return scanTable(row)
}

type ListTablesParams struct {
	Status pgtype.Text
	Search pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListTables(ctx context.Context, arg ListTablesParams) ([]Table, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+tableColumns+`
		FROM tables
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY name
		LIMIT $3 OFFSET $4`,
		arg.Status, arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type CountTablesParams struct {
	Status pgtype.Text
	Search pgtype.Text
}

func (q *Queries) CountTables(ctx context.Context, arg CountTablesParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tables
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')`,
		arg.Status, arg.Search,
	).Scan(&count)
	return count, err
}

type UpdateTableParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Capacity    int32
	Status      string
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables
		SET name = $2, description = $3, capacity = $4, status = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+tableColumns,
		arg.ID, arg.Name, arg.Description, arg.Capacity, arg.Status,
	)
	return scanTable(row)
}

type UpdateTableStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+tableColumns,
		arg.ID, arg.Status,
	)
	return scanTable(row)
}

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tables WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
