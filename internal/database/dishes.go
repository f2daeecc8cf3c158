package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const dishColumns = `id, name, description, price, available, category_id, created_at, updated_at`

func scanDish(row pgx.Row) (Dish, error) {
	var d Dish
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.Available, &d.CategoryID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

const listDishes = `SELECT ` + dishColumns + ` FROM dishes ORDER BY name`

func (q *Queries) ListDishes(ctx context.Context) ([]Dish, error) {
	rows, err := q.db.Query(ctx, listDishes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

const getDish = `SELECT ` + dishColumns + ` FROM dishes WHERE id = $1`

func (q *Queries) GetDish(ctx context.Context, id uuid.UUID) (Dish, error) {
	return scanDish(q.db.QueryRow(ctx, getDish, id))
}

// GetDishForOrder fetches the fields line creation needs, locking nothing:
// the unit price is snapshotted at order time and availability is checked
// against the value read here.
const getDishForOrder = `SELECT id, name, price, available FROM dishes WHERE id = $1`

type GetDishForOrderRow struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) GetDishForOrder(ctx context.Context, id uuid.UUID) (GetDishForOrderRow, error) {
	var r GetDishForOrderRow
	err := q.db.QueryRow(ctx, getDishForOrder, id).Scan(&r.ID, &r.Name, &r.Price, &r.Available)
	return r, err
}

type CreateDishParams struct {
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	CategoryID  pgtype.UUID
}

const createDish = `
INSERT INTO dishes (name, description, price, available, category_id)
VALUES ($1, $2, $3, true, $4)
RETURNING ` + dishColumns

func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, createDish, arg.Name, arg.Description, arg.Price, arg.CategoryID)
	return scanDish(row)
}

type UpdateDishAvailabilityParams struct {
	ID        uuid.UUID
	Available bool
}

const updateDishAvailability = `
UPDATE dishes SET available = $2, updated_at = now() WHERE id = $1
RETURNING ` + dishColumns

func (q *Queries) UpdateDishAvailability(ctx context.Context, arg UpdateDishAvailabilityParams) (Dish, error) {
	row := q.db.QueryRow(ctx, updateDishAvailability, arg.ID, arg.Available)
	return scanDish(row)
}

const listCategories = `SELECT id, name FROM categories ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
