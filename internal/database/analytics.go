package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const analyticsSummary = `
WITH paid_orders AS (
    SELECT o.id, o.seats, o.items
    FROM orders o
    WHERE o.status = 'paid' AND o.created_at BETWEEN $1 AND $2
      AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = o.user_id AND u.role = $3))
),
pending_orders AS (
    SELECT o.id
    FROM orders o
    WHERE o.status = 'pending' AND o.created_at BETWEEN $1 AND $2
      AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = o.user_id AND u.role = $3))
),
paid_items AS (
    SELECT
        COALESCE(NULLIF(itm->>'price','')::numeric, 0) AS price,
        COALESCE(NULLIF(itm->>'qty','')::int, 0) AS qty
    FROM paid_orders p,
    LATERAL jsonb_array_elements(COALESCE(p.items, '[]'::jsonb)) AS itm
    WHERE ($4::text IS NULL OR itm->>'sku' = $4)
)
SELECT
    COALESCE((SELECT SUM(price*qty) FROM paid_items), 0)::numeric(12,2) AS revenue,
    (SELECT COUNT(*) FROM paid_orders) AS orders,
    CASE
      WHEN (SELECT COUNT(*) FROM paid_orders) > 0
      THEN ROUND(
        COALESCE((SELECT SUM(price*qty) FROM paid_items), 0)
        / (SELECT COUNT(*) FROM paid_orders), 2
      )
      ELSE 0
    END AS aov,
    (SELECT COALESCE(SUM(seats), 0) FROM paid_orders) AS guests,
    (SELECT COUNT(*) FROM pending_orders) AS open_tabs,
    CASE
      WHEN ((SELECT COUNT(*) FROM paid_orders) + (SELECT COUNT(*) FROM pending_orders)) > 0
      THEN ROUND(
        (SELECT COUNT(*) FROM paid_orders)::numeric
        / ((SELECT COUNT(*) FROM paid_orders) + (SELECT COUNT(*) FROM pending_orders)), 4
      )
      ELSE 0
    END AS payment_rate
`

type AnalyticsSummaryParams struct {
	Start time.Time
	End   time.Time
	Role  pgtype.Text
	SKU   pgtype.Text
}

type AnalyticsSummaryRow struct {
	Revenue     pgtype.Numeric
	Orders      int64
	Aov         pgtype.Numeric
	Guests      int64
	OpenTabs    int64
	PaymentRate pgtype.Numeric
}

// GetAnalyticsSummary computes the owner dashboard headline numbers for
// a date window. Revenue is summed from the JSONB line items of paid
// orders; SKU, when set, restricts revenue (but not order counts) to
// matching line items.
func (q *Queries) GetAnalyticsSummary(ctx context.Context, arg AnalyticsSummaryParams) (AnalyticsSummaryRow, error) {
	var row AnalyticsSummaryRow
	err := q.db.QueryRow(ctx, analyticsSummary, arg.Start, arg.End, arg.Role, arg.SKU).Scan(
		&row.Revenue, &row.Orders, &row.Aov, &row.Guests, &row.OpenTabs, &row.PaymentRate,
	)
	return row, err
}

const analyticsProducts = `
WITH base AS (
    SELECT o.items
    FROM orders o
    WHERE o.status = 'paid' AND o.created_at BETWEEN $1 AND $2
      AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = o.user_id AND u.role = $3))
),
expanded AS (
    SELECT
        (itm->>'sku') AS sku,
        (itm->>'name') AS name,
        COALESCE(NULLIF(itm->>'price','')::numeric, 0) AS price,
        COALESCE(NULLIF(itm->>'qty','')::int, 0) AS qty
    FROM base,
    LATERAL jsonb_array_elements(COALESCE(items, '[]'::jsonb)) AS itm
)
SELECT
    sku,
    name,
    SUM(qty) AS total_qty,
    ROUND(SUM(price*qty), 2) AS total_revenue
FROM expanded
GROUP BY sku, name
ORDER BY total_qty DESC
LIMIT 50
`

type AnalyticsProductsParams struct {
	Start time.Time
	End   time.Time
	Role  pgtype.Text
}

type AnalyticsProductsRow struct {
	SKU          pgtype.Text
	Name         pgtype.Text
	TotalQty     int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetAnalyticsProducts(ctx context.Context, arg AnalyticsProductsParams) ([]AnalyticsProductsRow, error) {
	rows, err := q.db.Query(ctx, analyticsProducts, arg.Start, arg.End, arg.Role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AnalyticsProductsRow
	for rows.Next() {
		var r AnalyticsProductsRow
		if err := rows.Scan(&r.SKU, &r.Name, &r.TotalQty, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const analyticsStaff = `
WITH paid_orders AS (
    SELECT o.id, o.user_id, o.seats, o.items
    FROM orders o
    WHERE o.status = 'paid' AND o.created_at BETWEEN $1 AND $2
      AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = o.user_id AND u.role = $3))
),
expanded AS (
    SELECT
        p.user_id,
        COALESCE(NULLIF(itm->>'price','')::numeric, 0) AS price,
        COALESCE(NULLIF(itm->>'qty','')::int, 0) AS qty
    FROM paid_orders p,
    LATERAL jsonb_array_elements(COALESCE(p.items, '[]'::jsonb)) AS itm
),
revenue_by_user AS (
    SELECT user_id, SUM(price*qty) AS revenue
    FROM expanded
    GROUP BY user_id
)
SELECT
    u.id AS user_id,
    COALESCE(u.name, CONCAT('User #', u.id::text)) AS name,
    u.role,
    COUNT(po.id) AS orders,
    COALESCE(r.revenue, 0)::numeric(12,2) AS revenue,
    CASE WHEN COUNT(po.id) > 0 THEN ROUND(COALESCE(r.revenue, 0) / COUNT(po.id), 2) ELSE 0 END AS aov,
    COALESCE(SUM(po.seats), 0) AS guests
FROM paid_orders po
JOIN users u ON u.id = po.user_id
LEFT JOIN revenue_by_user r ON r.user_id = po.user_id
GROUP BY u.id, u.name, u.role, r.revenue
ORDER BY revenue DESC
LIMIT 100
`

type AnalyticsStaffParams struct {
	Start time.Time
	End   time.Time
	Role  pgtype.Text
}

type AnalyticsStaffRow struct {
	UserID  int64
	Name    string
	Role    string
	Orders  int64
	Revenue pgtype.Numeric
	Aov     pgtype.Numeric
	Guests  int64
}

func (q *Queries) GetAnalyticsStaff(ctx context.Context, arg AnalyticsStaffParams) ([]AnalyticsStaffRow, error) {
	rows, err := q.db.Query(ctx, analyticsStaff, arg.Start, arg.End, arg.Role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AnalyticsStaffRow
	for rows.Next() {
		var r AnalyticsStaffRow
		if err := rows.Scan(&r.UserID, &r.Name, &r.Role, &r.Orders, &r.Revenue, &r.Aov, &r.Guests); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// orderSortColumns whitelists sort keys for the analytics order listing.
// Values are SQL expressions interpolated into ORDER BY; anything not in
// this map falls back to created_at.
var orderSortColumns = map[string]string{
	"created_at": "b.created_at",
	"revenue":    "revenue",
	"id":         "b.id",
	"table_id":   "b.table_id",
	"status":     "b.status",
	"seats":      "b.seats",
}

const analyticsOrdersFilter = `
    o.created_at BETWEEN $1 AND $2
    AND ($3::text IS NULL OR EXISTS (SELECT 1 FROM users u WHERE u.id = o.user_id AND u.role = $3))
    AND ($4::bigint IS NULL OR o.table_id = $4)
    AND ($5::text IS NULL
         OR CAST(o.id AS TEXT) ILIKE $5
         OR CAST(o.table_id AS TEXT) ILIKE $5
         OR o.ordered_by ILIKE $5)
`

const analyticsOrders = `
WITH base AS (
    SELECT o.*
    FROM orders o
    WHERE ` + analyticsOrdersFilter + `
),
expanded AS (
    SELECT
        b.id,
        COALESCE(NULLIF(itm->>'price','')::numeric, 0) AS price,
        COALESCE(NULLIF(itm->>'qty','')::int, 0) AS qty
    FROM base b,
    LATERAL jsonb_array_elements(COALESCE(b.items, '[]'::jsonb)) AS itm
),
revenue_by_order AS (
    SELECT id, SUM(price*qty) AS revenue
    FROM expanded
    GROUP BY id
),
counted AS (
    SELECT COUNT(*) AS total_count FROM base
)
SELECT
    b.id,
    b.table_id,
    b.user_id,
    b.ordered_by,
    b.status,
    b.seats,
    b.created_at,
    b.updated_at,
    COALESCE(r.revenue, 0)::numeric(12,2) AS revenue,
    t.table_number,
    (SELECT total_count FROM counted) AS total_count
FROM base b
LEFT JOIN revenue_by_order r ON r.id = b.id
LEFT JOIN tables t ON t.id = b.table_id
ORDER BY %s %s, b.id DESC
LIMIT $6 OFFSET $7
`

const countAnalyticsOrders = `
SELECT COUNT(*)
FROM orders o
WHERE ` + analyticsOrdersFilter + `
`

type AnalyticsOrdersParams struct {
	Start   time.Time
	End     time.Time
	Role    pgtype.Text
	TableID pgtype.Int8
	// Search is an ILIKE pattern (already wrapped in %...%), or null.
	Search  pgtype.Text
	SortBy  string
	SortAsc bool
	Limit   int32
	Offset  int32
}

type AnalyticsOrdersRow struct {
	ID          int64
	TableID     int64
	UserID      int64
	OrderedBy   pgtype.Text
	Status      string
	Seats       pgtype.Int4
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Revenue     pgtype.Numeric
	TableNumber pgtype.Int4
	TotalCount  int64
}

// GetAnalyticsOrders returns one page of the order listing with per-order
// revenue computed from line items. Only whitelisted sort keys reach the
// ORDER BY clause; all user input travels through bind parameters.
func (q *Queries) GetAnalyticsOrders(ctx context.Context, arg AnalyticsOrdersParams) ([]AnalyticsOrdersRow, error) {
	sortExpr, ok := orderSortColumns[arg.SortBy]
	if !ok {
		sortExpr = orderSortColumns["created_at"]
	}
	dir := "DESC"
	if arg.SortAsc {
		dir = "ASC"
	}
	sql := fmt.Sprintf(analyticsOrders, sortExpr, dir)

	rows, err := q.db.Query(ctx, sql, arg.Start, arg.End, arg.Role, arg.TableID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AnalyticsOrdersRow
	for rows.Next() {
		var r AnalyticsOrdersRow
		if err := rows.Scan(&r.ID, &r.TableID, &r.UserID, &r.OrderedBy, &r.Status, &r.Seats,
			&r.CreatedAt, &r.UpdatedAt, &r.Revenue, &r.TableNumber, &r.TotalCount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountAnalyticsOrders counts matching orders with the same filters as
// GetAnalyticsOrders. Used when the requested page is past the end and
// no row carries total_count.
func (q *Queries) CountAnalyticsOrders(ctx context.Context, arg AnalyticsOrdersParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAnalyticsOrders, arg.Start, arg.End, arg.Role, arg.TableID, arg.Search).Scan(&n)
	return n, err
}
