package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, user_id, items, ordered_by, seats, status, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var items []byte
	err := row.Scan(&o.ID, &o.TableID, &o.UserID, &items, &o.OrderedBy, &o.Seats, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
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

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOpenTabForTable = `
SELECT ` + orderColumns + `
FROM orders
WHERE table_id = $1 AND status = 'pending'
ORDER BY id DESC
LIMIT 1
`

// GetOpenTabForTable returns the table's single pending order, or
// pgx.ErrNoRows when the table has no open tab.
func (q *Queries) GetOpenTabForTable(ctx context.Context, tableID int64) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOpenTabForTable, tableID))
}

const createOrder = `
INSERT INTO orders (table_id, user_id, items, ordered_by, seats, status)
VALUES ($1, $2, $3, $4, $5, 'pending')
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	TableID   int64
	UserID    int64
	Items     []LineItem
	OrderedBy pgtype.Text
	Seats     pgtype.Int4
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	items, err := json.Marshal(arg.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	return scanOrder(q.db.QueryRow(ctx, createOrder, arg.TableID, arg.UserID, items, arg.OrderedBy, arg.Seats))
}

const updateOrderItems = `
UPDATE orders
SET items = $2,
    ordered_by = COALESCE($3, ordered_by),
    seats = COALESCE($4, seats),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderItemsParams struct {
	ID        int64
	Items     []LineItem
	OrderedBy pgtype.Text
	Seats     pgtype.Int4
}

// UpdateOrderItems replaces the order's item list. OrderedBy and Seats
// are only written when non-null; null keeps the stored value.
func (q *Queries) UpdateOrderItems(ctx context.Context, arg UpdateOrderItemsParams) (Order, error) {
	items, err := json.Marshal(arg.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	return scanOrder(q.db.QueryRow(ctx, updateOrderItems, arg.ID, items, arg.OrderedBy, arg.Seats))
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID     int64
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::bigint IS NULL OR table_id = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at <= $4)
ORDER BY id DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	Status  pgtype.Text
	TableID pgtype.Int8
	From    pgtype.Timestamptz
	To      pgtype.Timestamptz
	Limit   int32
	Offset  int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.TableID, arg.From, arg.To, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrdersForTable = `
SELECT ` + orderColumns + `
FROM orders
WHERE table_id = $1
  AND ($2::bigint IS NULL OR user_id = $2)
ORDER BY id DESC
`

type ListOrdersForTableParams struct {
	TableID int64
	UserID  pgtype.Int8
}

// ListOrdersForTable returns the table's order history, newest first.
// UserID, when set, restricts the listing to that staff member's orders.
func (q *Queries) ListOrdersForTable(ctx context.Context, arg ListOrdersForTableParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForTable, arg.TableID, arg.UserID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const getOrdersSummary = `
WITH base AS (
    SELECT id, status, seats, items
    FROM orders
    WHERE ($1::timestamptz IS NULL OR created_at >= $1)
      AND ($2::timestamptz IS NULL OR created_at <= $2)
),
expanded AS (
    SELECT
        b.status,
        COALESCE(NULLIF(itm->>'price','')::numeric, 0)
          * COALESCE(NULLIF(itm->>'qty','')::int, 0) AS line_total
    FROM base b,
    LATERAL jsonb_array_elements(COALESCE(b.items, '[]'::jsonb)) AS itm
)
SELECT
    (SELECT COUNT(*) FROM base) AS total_orders,
    (SELECT COUNT(*) FROM base WHERE status = 'paid') AS paid_orders,
    (SELECT COUNT(*) FROM base WHERE status = 'pending') AS unpaid_orders,
    COALESCE((SELECT SUM(line_total) FROM expanded WHERE status = 'paid'), 0)::numeric(12,2) AS total_revenue,
    COALESCE((SELECT SUM(line_total) FROM expanded WHERE status = 'pending'), 0)::numeric(12,2) AS pending_revenue,
    (SELECT COALESCE(SUM(seats), 0) FROM base) AS total_guests
`

type GetOrdersSummaryParams struct {
	From pgtype.Timestamptz
	To   pgtype.Timestamptz
}

type GetOrdersSummaryRow struct {
	TotalOrders    int64
	PaidOrders     int64
	UnpaidOrders   int64
	TotalRevenue   pgtype.Numeric
	PendingRevenue pgtype.Numeric
	TotalGuests    int64
}

func (q *Queries) GetOrdersSummary(ctx context.Context, arg GetOrdersSummaryParams) (GetOrdersSummaryRow, error) {
	var row GetOrdersSummaryRow
	err := q.db.QueryRow(ctx, getOrdersSummary, arg.From, arg.To).Scan(
		&row.TotalOrders, &row.PaidOrders, &row.UnpaidOrders,
		&row.TotalRevenue, &row.PendingRevenue, &row.TotalGuests,
	)
	return row, err
}
