package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getTableFn           func(ctx context.Context, id int64) (database.Table, error)
	getOrderFn           func(ctx context.Context, id int64) (database.Order, error)
	getOpenTabFn         func(ctx context.Context, tableID int64) (database.Order, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	updateOrderItemsFn   func(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error)
	updateOrderStatusFn  func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

func (m *mockOrderStore) GetTable(ctx context.Context, id int64) (database.Table, error) {
	if m.getTableFn != nil {
		return m.getTableFn(ctx, id)
	}
	return database.Table{ID: id, TableNumber: int32(id)}, nil
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id int64) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}
func (m *mockOrderStore) GetOpenTabForTable(ctx context.Context, tableID int64) (database.Order, error) {
	if m.getOpenTabFn != nil {
		return m.getOpenTabFn(ctx, tableID)
	}
	return database.Order{}, pgx.ErrNoRows
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, arg)
	}
	return database.Order{}, errors.New("unexpected CreateOrder call")
}
func (m *mockOrderStore) UpdateOrderItems(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error) {
	if m.updateOrderItemsFn != nil {
		return m.updateOrderItemsFn(ctx, arg)
	}
	return database.Order{}, errors.New("unexpected UpdateOrderItems call")
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.Order{}, errors.New("unexpected UpdateOrderStatus call")
}

func newTestService(store *mockOrderStore) *OrderService {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewOrderService(pool, store, func(db database.DBTX) OrderStore {
		return store
	})
}

func beerItems(qty int32) []database.LineItem {
	return []database.LineItem{{SKU: "beer", Qty: qty, Price: decimal.NewFromInt(8)}}
}

// --- SubmitItems ---

func TestSubmitItems_EmptyItems(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{TableID: 5, UserID: 1})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("err: got %v, want ErrEmptyItems", err)
	}
}

func TestSubmitItems_ZeroQuantity(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(0),
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err: got %v, want ErrInvalidQuantity", err)
	}
}

func TestSubmitItems_NegativePrice(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1,
		Items: []database.LineItem{{SKU: "beer", Qty: 1, Price: decimal.NewFromInt(-8)}},
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("err: got %v, want ErrInvalidPrice", err)
	}
}

func TestSubmitItems_TableNotFound(t *testing.T) {
	store := &mockOrderStore{
		getTableFn: func(ctx context.Context, id int64) (database.Table, error) {
			return database.Table{}, pgx.ErrNoRows
		},
	}
	svc := newTestService(store)

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 99, UserID: 1, Items: beerItems(1),
	})
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("err: got %v, want ErrTableNotFound", err)
	}
}

func TestSubmitItems_CreatesNewTab(t *testing.T) {
	var created database.CreateOrderParams
	store := &mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			created = arg
			return database.Order{ID: 10, TableID: arg.TableID, UserID: arg.UserID, Items: arg.Items, Status: enum.OrderStatusPending}, nil
		},
	}
	svc := newTestService(store)

	result, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(2), Seats: 4,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Created {
		t.Error("expected Created=true for a new tab")
	}
	if result.Order.Status != enum.OrderStatusPending {
		t.Errorf("status: got %q, want pending", result.Order.Status)
	}
	if created.TableID != 5 || created.UserID != 1 {
		t.Errorf("create params: got table %d user %d", created.TableID, created.UserID)
	}
	if !created.Seats.Valid || created.Seats.Int32 != 4 {
		t.Errorf("seats: got %+v, want 4", created.Seats)
	}
}

func TestSubmitItems_MergesIntoOwnTab(t *testing.T) {
	open := database.Order{ID: 10, TableID: 5, UserID: 1, Items: beerItems(2), Status: enum.OrderStatusPending}

	var updated database.UpdateOrderItemsParams
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return open, nil
		},
		updateOrderItemsFn: func(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error) {
			updated = arg
			o := open
			o.Items = arg.Items
			return o, nil
		},
	}
	svc := newTestService(store)

	result, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1,
		Items: []database.LineItem{
			{SKU: "beer", Qty: 1, Price: decimal.NewFromInt(8)},
			{SKU: "wine", Qty: 1, Price: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Created {
		t.Error("expected Created=false for a merge")
	}
	if updated.ID != 10 {
		t.Errorf("updated order ID: got %d, want 10", updated.ID)
	}
	if len(result.Order.Items) != 2 {
		t.Fatalf("items len: got %d, want 2", len(result.Order.Items))
	}
	if result.Order.Items[0].SKU != "beer" || result.Order.Items[0].Qty != 3 {
		t.Errorf("beer line: got %+v, want qty 3", result.Order.Items[0])
	}
	if result.Order.Items[1].SKU != "wine" || result.Order.Items[1].Qty != 1 {
		t.Errorf("wine line: got %+v, want qty 1", result.Order.Items[1])
	}
}

func TestSubmitItems_MergeDoesNotTouchOrderedByWhenAbsent(t *testing.T) {
	open := database.Order{ID: 10, TableID: 5, UserID: 1, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return open, nil
		},
		updateOrderItemsFn: func(ctx context.Context, arg database.UpdateOrderItemsParams) (database.Order, error) {
			if arg.OrderedBy.Valid {
				t.Errorf("ordered_by should be null when not provided, got %+v", arg.OrderedBy)
			}
			if arg.Seats.Valid {
				t.Errorf("seats should be null when not provided, got %+v", arg.Seats)
			}
			return open, nil
		},
	}
	svc := newTestService(store)

	if _, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(1),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestSubmitItems_TableTakenByOtherServer(t *testing.T) {
	open := database.Order{ID: 10, TableID: 5, UserID: 2, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return open, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(1),
	})
	if !errors.Is(err, ErrTableTaken) {
		t.Fatalf("err: got %v, want ErrTableTaken", err)
	}
}

func TestSubmitItems_UniqueViolationBecomesTableTaken(t *testing.T) {
	// A concurrent submission slipped past the read check; the partial
	// unique index rejects the insert and the caller sees the same
	// conflict as the proactive check.
	store := &mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_unique_open_tab_by_table",
			}
		},
	}
	svc := newTestService(store)

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(1),
	})
	if !errors.Is(err, ErrTableTaken) {
		t.Fatalf("err: got %v, want ErrTableTaken", err)
	}
}

func TestSubmitItems_OtherUniqueViolationSurfaces(t *testing.T) {
	store := &mockOrderStore{
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}
		},
	}
	svc := newTestService(store)

	_, err := svc.SubmitItems(context.Background(), SubmitOrderRequest{
		TableID: 5, UserID: 1, Items: beerItems(1),
	})
	if err == nil || errors.Is(err, ErrTableTaken) {
		t.Fatalf("err: got %v, want a non-conflict error", err)
	}
}

// --- UpdateStatus ---

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: "refunded", CallerID: 1, CallerRole: enum.RoleOwner,
	})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err: got %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: enum.OrderStatusPaid, CallerID: 1, CallerRole: enum.RoleOwner,
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err: got %v, want ErrOrderNotFound", err)
	}
}

func TestUpdateStatus_ServerSettlesOwnOrder(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 1, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id int64) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			o := order
			o.Status = arg.Status
			return o, nil
		},
	}
	svc := newTestService(store)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: enum.OrderStatusPaid, CallerID: 1, CallerRole: enum.RoleServer,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enum.OrderStatusPaid {
		t.Errorf("status: got %q, want paid", updated.Status)
	}
}

func TestUpdateStatus_ServerCannotTouchOthersOrder(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 2, Items: beerItems(2), Status: enum.OrderStatusPending}
	mutated := false
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id int64) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			mutated = true
			return order, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: enum.OrderStatusPaid, CallerID: 1, CallerRole: enum.RoleServer,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err: got %v, want ErrForbidden", err)
	}
	if mutated {
		t.Error("order must not be mutated on a forbidden transition")
	}
}

func TestUpdateStatus_ManagerReopensPaidOrder(t *testing.T) {
	// No transition graph: paid -> pending is allowed for manager/owner.
	order := database.Order{ID: 10, TableID: 5, UserID: 2, Items: beerItems(2), Status: enum.OrderStatusPaid}
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id int64) (database.Order, error) {
			return order, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			o := order
			o.Status = arg.Status
			return o, nil
		},
	}
	svc := newTestService(store)

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: enum.OrderStatusPending, CallerID: 1, CallerRole: enum.RoleManager,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enum.OrderStatusPending {
		t.Errorf("status: got %q, want pending", updated.Status)
	}
}

func TestUpdateStatus_BartenderAlwaysForbidden(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 1, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id int64) (database.Order, error) {
			return order, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		OrderID: 10, Status: enum.OrderStatusPaid, CallerID: 1, CallerRole: enum.RoleBartender,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err: got %v, want ErrForbidden", err)
	}
}

// --- OpenTab ---

func TestOpenTab_NoOpenTab(t *testing.T) {
	svc := newTestService(&mockOrderStore{})

	open, err := svc.OpenTab(context.Background(), 5, 1, enum.RoleServer)
	if err != nil {
		t.Fatalf("open tab: %v", err)
	}
	if open != nil {
		t.Errorf("expected nil order for a free table, got %+v", open)
	}
}

func TestOpenTab_OwnTab(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 1, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return order, nil
		},
	}
	svc := newTestService(store)

	open, err := svc.OpenTab(context.Background(), 5, 1, enum.RoleServer)
	if err != nil {
		t.Fatalf("open tab: %v", err)
	}
	if open == nil || open.ID != 10 {
		t.Errorf("expected order 10, got %+v", open)
	}
}

func TestOpenTab_OtherServersTab(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 2, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return order, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.OpenTab(context.Background(), 5, 1, enum.RoleServer)
	if !errors.Is(err, ErrTableTaken) {
		t.Fatalf("err: got %v, want ErrTableTaken", err)
	}
}

func TestOpenTab_ManagerSeesAnyTab(t *testing.T) {
	order := database.Order{ID: 10, TableID: 5, UserID: 2, Items: beerItems(2), Status: enum.OrderStatusPending}
	store := &mockOrderStore{
		getOpenTabFn: func(ctx context.Context, tableID int64) (database.Order, error) {
			return order, nil
		},
	}
	svc := newTestService(store)

	open, err := svc.OpenTab(context.Background(), 5, 1, enum.RoleManager)
	if err != nil {
		t.Fatalf("open tab: %v", err)
	}
	if open == nil || open.UserID != 2 {
		t.Errorf("expected other server's tab, got %+v", open)
	}
}

func TestOpenTab_TableNotFound(t *testing.T) {
	store := &mockOrderStore{
		getTableFn: func(ctx context.Context, id int64) (database.Table, error) {
			return database.Table{}, pgx.ErrNoRows
		},
	}
	svc := newTestService(store)

	_, err := svc.OpenTab(context.Background(), 99, 1, enum.RoleServer)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("err: got %v, want ErrTableNotFound", err)
	}
}
