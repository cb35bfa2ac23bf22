package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/middleware"
	"github.com/fume-lounge/api/internal/service"
	"github.com/fume-lounge/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// openTabConflictMessage is the exact message the floor tablets key on
// when a table is held by another server.
const openTabConflictMessage = "Table has an open bill awaiting payment."

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	SubmitItems(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (database.Order, error)
	OpenTab(ctx context.Context, tableID, callerID int64, callerRole string) (*database.Order, error)
}

// OrderReadStore defines the database methods needed by the order read
// endpoints. Satisfied by *database.Queries.
type OrderReadStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrdersSummary(ctx context.Context, arg database.GetOrdersSummaryParams) (database.GetOrdersSummaryRow, error)
}

// OrderBroadcaster pushes order events to connected dashboard clients.
// Satisfied by *ws.Hub.
type OrderBroadcaster interface {
	BroadcastOrder(eventType string, payload interface{})
}

// OrderHandler handles the order submission, settlement, and read endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderReadStore
	hub   OrderBroadcaster
}

// NewOrderHandler creates a new OrderHandler. hub may be nil in tests.
func NewOrderHandler(svc OrderServicer, store OrderReadStore, hub OrderBroadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// --- Request / Response types ---

type submitOrderRequest struct {
	TableID   int64             `json:"table_id"`
	Items     []lineItemRequest `json:"items"`
	OrderedBy string            `json:"ordered_by"`
	Seats     int32             `json:"seats"`
}

type lineItemRequest struct {
	SKU    string          `json:"sku"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Qty    int32           `json:"qty"`
	Flavor string          `json:"flavor"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID        int64               `json:"id"`
	TableID   int64               `json:"table_id"`
	UserID    int64               `json:"user_id"`
	Items     []database.LineItem `json:"items"`
	OrderedBy *string             `json:"ordered_by"`
	Seats     *int32              `json:"seats"`
	Status    string              `json:"status"`
	Total     string              `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type ordersSummaryResponse struct {
	TotalOrders    int64  `json:"total_orders"`
	PaidOrders     int64  `json:"paid_orders"`
	UnpaidOrders   int64  `json:"unpaid_orders"`
	TotalRevenue   string `json:"total_revenue"`
	PendingRevenue string `json:"pending_revenue"`
	TotalGuests    int64  `json:"total_guests"`
}

// --- Handlers ---

// Submit handles POST /orders. One call either opens a new tab for the
// table (201) or merges the items into the caller's existing open tab
// (200). A tab held by another server yields 409.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.SKU == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "sku is required"),
			})
			return
		}
	}

	items := make([]database.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = database.LineItem{
			SKU:    item.SKU,
			Name:   item.Name,
			Price:  item.Price,
			Qty:    item.Qty,
			Flavor: item.Flavor,
		}
	}

	result, err := h.svc.SubmitItems(r.Context(), service.SubmitOrderRequest{
		TableID:   req.TableID,
		UserID:    claims.UserID,
		Items:     items,
		OrderedBy: req.OrderedBy,
		Seats:     req.Seats,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidPrice):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrTableNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
		case errors.Is(err, service.ErrTableTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"error": openTabConflictMessage})
		default:
			log.Printf("ERROR: submit order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	status := http.StatusOK
	eventType := ws.EventOrderUpdated
	if result.Created {
		status = http.StatusCreated
		eventType = ws.EventOrderCreated
	}

	resp := toOrderResponse(result.Order)
	if h.hub != nil {
		h.hub.BroadcastOrder(eventType, resp)
	}
	writeJSON(w, status, resp)
}

// UpdateStatus handles PATCH /orders/{id}. Managers and owners can set
// any status on any order; servers only on their own orders.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		OrderID:    orderID,
		Status:     req.Status,
		CallerID:   claims.UserID,
		CallerRole: claims.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only update your own orders"})
		default:
			log.Printf("ERROR: update order status: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	resp := toOrderResponse(order)
	if h.hub != nil {
		h.hub.BroadcastOrder(ws.EventOrderUpdated, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Open handles GET /orders/open?table_id=N. The body is the open tab,
// or JSON null when the table is free. Servers get 409 when the open
// tab belongs to someone else.
func (h *OrderHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tableID, err := strconv.ParseInt(r.URL.Query().Get("table_id"), 10, 64)
	if err != nil || tableID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}

	order, err := h.svc.OpenTab(r.Context(), tableID, claims.UserID, claims.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTableNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
		case errors.Is(err, service.ErrTableTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"error": openTabConflictMessage})
		default:
			log.Printf("ERROR: get open tab: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	if order == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*order))
}

// List handles GET /orders with optional status, table_id, and date
// filters. Pagination is page-based: page (default 1) and limit
// (default 50, max 100).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.Int8{Int64: id, Valid: true}
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date, use YYYY-MM-DD"})
			return
		}
		params.From = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date, use YYYY-MM-DD"})
			return
		}
		params.To = pgtype.Timestamptz{Time: endOfDay(t), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Page: page, Limit: limit})
}

// Summary handles GET /orders/summary with optional from/to date filters.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var params database.GetOrdersSummaryParams

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date, use YYYY-MM-DD"})
			return
		}
		params.From = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date, use YYYY-MM-DD"})
			return
		}
		params.To = pgtype.Timestamptz{Time: endOfDay(t), Valid: true}
	}

	row, err := h.store.GetOrdersSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: orders summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, ordersSummaryResponse{
		TotalOrders:    row.TotalOrders,
		PaidOrders:     row.PaidOrders,
		UnpaidOrders:   row.UnpaidOrders,
		TotalRevenue:   numericToString(row.TotalRevenue),
		PendingRevenue: numericToString(row.PendingRevenue),
		TotalGuests:    row.TotalGuests,
	})
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// endOfDay pushes a date to the last instant of that day so "to" filters
// include the whole day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		TableID:   o.TableID,
		UserID:    o.UserID,
		Items:     o.Items,
		Status:    o.Status,
		Total:     service.ItemsTotal(o.Items).StringFixed(2),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if resp.Items == nil {
		resp.Items = []database.LineItem{}
	}
	if o.OrderedBy.Valid {
		resp.OrderedBy = &o.OrderedBy.String
	}
	if o.Seats.Valid {
		resp.Seats = &o.Seats.Int32
	}
	return resp
}
