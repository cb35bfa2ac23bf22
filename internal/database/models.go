package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// LineItem is one entry in an order's JSONB item list. The pair
// (SKU, Flavor) is unique within an order; merging adds quantity to the
// matching entry instead of appending a duplicate.
type LineItem struct {
	SKU    string          `json:"sku"`
	Name   string          `json:"name,omitempty"`
	Price  decimal.Decimal `json:"price"`
	Qty    int32           `json:"qty"`
	Flavor string          `json:"flavor,omitempty"`
}

// User is a staff member. PINs are stored as bcrypt hashes.
type User struct {
	ID        int64
	Name      string
	Role      string
	Status    string
	PinHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Table is a physical table on the floor.
type Table struct {
	ID          int64
	TableNumber int32
	SeatCount   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a tab for a table. While status is "pending" it is the
// table's single open tab; the partial unique index
// orders_unique_open_tab_by_table enforces that at the storage layer.
type Order struct {
	ID        int64
	TableID   int64
	UserID    int64
	Items     []LineItem
	OrderedBy pgtype.Text
	Seats     pgtype.Int4
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
