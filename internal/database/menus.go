package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuColumns = `id, name, description, price, discount, category, image_url, is_available, created_at, updated_at`

func scanMenu(row interface{ Scan(...any) error }) (Menu, error) {
	var m Menu
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.Discount,
		&m.Category,
		&m.ImageURL,
		&m.IsAvailable,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

type CreateMenuParams struct {
	Name        string
	Description pgtype.Text
	Price       int64
	Discount    int64
	Category    string
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (Menu, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menus (name, description, price, discount, category, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+menuColumns,
		arg.Name, arg.Description, arg.Price, arg.Discount, arg.Category, arg.ImageURL, arg.IsAvailable,
	)
	return scanMenu(row)
}

func (q *Queries) GetMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	row := q.db.QueryRow(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = $1`, id)
	return scanMenu(row)
}

type ListMenusParams struct {
	Category    pgtype.Text
	Search      pgtype.Text
	IsAvailable pgtype.Bool
	Limit       int32
	Offset      int32
}

func (q *Queries) ListMenus(ctx context.Context, arg ListMenusParams) ([]Menu, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuColumns+`
		FROM menus
		WHERE ($1::text IS NULL OR category = $1)
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		  AND ($3::boolean IS NULL OR is_available = $3)
		ORDER BY name
		LIMIT $4 OFFSET $5`,
		arg.Category, arg.Search, arg.IsAvailable, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

type CountMenusParams struct {
	Category    pgtype.Text
	Search      pgtype.Text
	IsAvailable pgtype.Bool
}

func (q *Queries) CountMenus(ctx context.Context, arg CountMenusParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM menus
		WHERE ($1::text IS NULL OR category = $1)
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		  AND ($3::boolean IS NULL OR is_available = $3)`,
		arg.Category, arg.Search, arg.IsAvailable,
	).Scan(&count)
	return count, err
}

type UpdateMenuParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       int64
	Discount    int64
	Category    string
	ImageURL    pgtype.Text
	IsAvailable bool
}

func (q *Queries) UpdateMenu(ctx context.Context, arg UpdateMenuParams) (Menu, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menus
		SET name = $2, description = $3, price = $4, discount = $5,
		    category = $6, image_url = $7, is_available = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+menuColumns,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.Discount,
		arg.Category, arg.ImageURL, arg.IsAvailable,
	)
	return scanMenu(row)
}

func (q *Queries) DeleteMenu(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
