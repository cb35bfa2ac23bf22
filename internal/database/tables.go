package database

import (
	"context"
)

const tableColumns = `id, table_number, seat_count, created_at, updated_at`

const getTable = `
SELECT ` + tableColumns + `
FROM tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id int64) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, getTable, id).Scan(
		&t.ID, &t.TableNumber, &t.SeatCount, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

const listTables = `
SELECT ` + tableColumns + `
FROM tables
ORDER BY table_number
`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.SeatCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const upsertTable = `
INSERT INTO tables (table_number, seat_count)
VALUES ($1, $2)
ON CONFLICT (table_number) DO UPDATE SET seat_count = EXCLUDED.seat_count, updated_at = now()
RETURNING ` + tableColumns + `
`

type UpsertTableParams struct {
	TableNumber int32
	SeatCount   int32
}

func (q *Queries) UpsertTable(ctx context.Context, arg UpsertTableParams) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx, upsertTable, arg.TableNumber, arg.SeatCount).Scan(
		&t.ID, &t.TableNumber, &t.SeatCount, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
