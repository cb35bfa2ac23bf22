package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Errors returned by the order service.
var (
	ErrEmptyItems      = errors.New("items are required")
	ErrInvalidQuantity = errors.New("qty must be > 0")
	ErrInvalidPrice    = errors.New("price must be >= 0")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrTableNotFound   = errors.New("table not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrTableTaken      = errors.New("table has an open bill awaiting payment")
	ErrForbidden       = errors.New("forbidden")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order workflow.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id int64) (database.Table, error)
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	GetOpenTabForTable(ctx context.Context, tableID int64) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrderItems(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// SubmitOrderRequest is the validated input for submitting items to a table.
type SubmitOrderRequest struct {
	TableID   int64
	UserID    int64
	Items     []database.LineItem
	OrderedBy string
	Seats     int32
}

// SubmitOrderResult carries the created or merged order. Created is true
// when a new tab was opened rather than merged into an existing one.
type SubmitOrderResult struct {
	Order   database.Order
	Created bool
}

// UpdateStatusRequest is the input for a status transition.
type UpdateStatusRequest struct {
	OrderID    int64
	Status     string
	CallerID   int64
	CallerRole string
}

// OrderService handles the open-tab submission and settlement workflow.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store is a pool-backed
// OrderStore for single-statement operations; newStore builds
// transaction-scoped stores for the submit workflow.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// SubmitItems runs the open-tab workflow for one submission: resolve the
// table's open tab, then either create a new pending order, merge into
// the caller's own tab, or reject with ErrTableTaken when the tab
// belongs to someone else. The read and write happen in one transaction;
// a concurrent submission that slips past the read check trips the
// partial unique index and is translated to the same ErrTableTaken.
func (s *OrderService) SubmitItems(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, it := range req.Items {
		if it.Qty <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if it.Price.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidPrice)
		}
	}

	result, err := s.submitTx(ctx, req)
	if err != nil {
		if isOpenTabConflict(err) {
			return nil, ErrTableTaken
		}
		return nil, err
	}
	return result, nil
}

func (s *OrderService) submitTx(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetTable(ctx, req.TableID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	orderedBy := pgtype.Text{}
	if req.OrderedBy != "" {
		orderedBy = pgtype.Text{String: req.OrderedBy, Valid: true}
	}
	seats := pgtype.Int4{}
	if req.Seats > 0 {
		seats = pgtype.Int4{Int32: req.Seats, Valid: true}
	}

	open, err := store.GetOpenTabForTable(ctx, req.TableID)
	switch {
	case err == nil:
		if open.UserID != req.UserID {
			return nil, ErrTableTaken
		}
		merged, err := store.UpdateOrderItems(ctx, database.UpdateOrderItemsParams{
			ID:        open.ID,
			Items:     MergeItems(open.Items, req.Items),
			OrderedBy: orderedBy,
			Seats:     seats,
		})
		if err != nil {
			return nil, fmt.Errorf("merge order items: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return &SubmitOrderResult{Order: merged}, nil

	case errors.Is(err, pgx.ErrNoRows):
		created, err := store.CreateOrder(ctx, database.CreateOrderParams{
			TableID:   req.TableID,
			UserID:    req.UserID,
			Items:     req.Items,
			OrderedBy: orderedBy,
			Seats:     seats,
		})
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return &SubmitOrderResult{Order: created, Created: true}, nil

	default:
		return nil, fmt.Errorf("get open tab: %w", err)
	}
}

// UpdateStatus authorizes and applies a status transition.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (database.Order, error) {
	if !enum.IsValidOrderStatus(req.Status) {
		return database.Order{}, ErrInvalidStatus
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if !CanTransition(req.CallerRole, order.UserID == req.CallerID, req.Status) {
		return database.Order{}, ErrForbidden
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     order.ID,
		Status: req.Status,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// OpenTab resolves the table's current pending order for the caller.
// Servers get ErrTableTaken when the tab belongs to another staff
// member, so callers can tell "no open tab" from "table taken".
// A nil order with nil error means the table is free.
func (s *OrderService) OpenTab(ctx context.Context, tableID, callerID int64, callerRole string) (*database.Order, error) {
	if _, err := s.store.GetTable(ctx, tableID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	open, err := s.store.GetOpenTabForTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open tab: %w", err)
	}

	if callerRole == enum.RoleServer && open.UserID != callerID {
		return nil, ErrTableTaken
	}
	return &open, nil
}

// isOpenTabConflict checks for a unique constraint violation on the
// single-open-tab partial index (pgconn error code 23505).
func isOpenTabConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_unique_open_tab_by_table"
	}
	return false
}
