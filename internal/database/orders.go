package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, table_id, diner_id, order_type, status, note,
	refusal_reason, payment_method, total_amount, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.TableID, &o.DinerID, &o.OrderType, &o.Status,
		&o.Note, &o.RefusalReason, &o.PaymentMethod, &o.TotalAmount,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// Order numbers look like SAL-20260830-001: the date keeps them globally
// unique across days while the trailing sequence restarts each morning.
const getNextOrderNumber = `
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 14) AS INTEGER)), 0) + 1
FROM orders
WHERE created_at::date = CURRENT_DATE
`

// GetNextOrderNumber returns the next sequential order number for today.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	OrderNumber string
	TableID     pgtype.UUID
	DinerID     pgtype.UUID
	OrderType   string
	Note        pgtype.Text
	TotalAmount pgtype.Numeric
	CreatedBy   uuid.UUID
}

const createOrder = `
INSERT INTO orders (order_number, table_id, diner_id, order_type, status, note, total_amount, created_by)
VALUES ($1, $2, $3, $4, 'PENDING_VALIDATION', $5, $6, $7)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber, arg.TableID, arg.DinerID, arg.OrderType,
		arg.Note, arg.TotalAmount, arg.CreatedBy,
	)
	return scanOrder(row)
}

type CreateOrderLineParams struct {
	OrderID   uuid.UUID
	DishID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Note      pgtype.Text
}

const createOrderLine = `
INSERT INTO order_lines (order_id, dish_id, quantity, unit_price, note)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, dish_id,
	(SELECT name FROM dishes WHERE dishes.id = dish_id) AS dish_name,
	quantity, unit_price, note
`

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	row := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID, arg.DishID, arg.Quantity, arg.UnitPrice, arg.Note,
	)
	var l OrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.DishID, &l.DishName, &l.Quantity, &l.UnitPrice, &l.Note)
	return l, err
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrderLinesByOrder = `
SELECT ol.id, ol.order_id, ol.dish_id, d.name AS dish_name, ol.quantity, ol.unit_price, ol.note
FROM order_lines ol
JOIN dishes d ON d.id = ol.dish_id
WHERE ol.order_id = $1
ORDER BY ol.id
`

func (q *Queries) ListOrderLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLinesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.DishID, &l.DishName, &l.Quantity, &l.UnitPrice, &l.Note); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type UpdateOrderStatusFromParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus []string
}

// updateOrderStatusFrom is the guard: the row is only updated when the current
// status is still one the transition may start from. pgx.ErrNoRows on return
// means the order either does not exist or the status advanced under us.
const updateOrderStatusFrom = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3)
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatusFrom(ctx context.Context, arg UpdateOrderStatusFromParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatusFrom, arg.ID, arg.Status, arg.FromStatus)
	return scanOrder(row)
}

type RefuseOrderParams struct {
	ID     uuid.UUID
	Reason string
}

const refuseOrder = `
UPDATE orders
SET status = 'CANCELLED', refusal_reason = $2, updated_at = now()
WHERE id = $1 AND status = 'PENDING_VALIDATION'
RETURNING ` + orderColumns

func (q *Queries) RefuseOrder(ctx context.Context, arg RefuseOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, refuseOrder, arg.ID, arg.Reason)
	return scanOrder(row)
}

type PayOrderParams struct {
	ID            uuid.UUID
	PaymentMethod string
	FromStatus    []string
}

const payOrder = `
UPDATE orders
SET status = 'PAID', payment_method = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3)
RETURNING ` + orderColumns

func (q *Queries) PayOrder(ctx context.Context, arg PayOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, payOrder, arg.ID, arg.PaymentMethod, arg.FromStatus)
	return scanOrder(row)
}
