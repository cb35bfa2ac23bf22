package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/enum"
	"github.com/fume-lounge/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	GetTable(ctx context.Context, id int64) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	ListOrdersForTable(ctx context.Context, arg database.ListOrdersForTableParams) ([]database.Order, error)
}

// TableHandler handles the floor-plan endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

type tableResponse struct {
	ID          int64     `json:"id"`
	TableNumber int32     `json:"table_number"`
	SeatCount   int32     `json:"seat_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{
			ID:          t.ID,
			TableNumber: t.TableNumber,
			SeatCount:   t.SeatCount,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListOrders handles GET /tables/{id}/orders, the table's order history
// newest first. Servers only see their own orders; managers and owners
// see everything.
func (h *TableHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tableID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if _, err := h.store.GetTable(r.Context(), tableID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	params := database.ListOrdersForTableParams{TableID: tableID}
	if claims.Role == enum.RoleServer {
		params.UserID = pgtype.Int8{Int64: claims.UserID, Valid: true}
	}

	orders, err := h.store.ListOrdersForTable(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders for table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}
