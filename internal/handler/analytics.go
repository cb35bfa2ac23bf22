package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/enum"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	defaultPerPage = 20
	minPerPage     = 10
	maxPerPage     = 100
)

// AnalyticsStore defines the database methods needed by the owner
// dashboard endpoints. Satisfied by *database.Queries.
type AnalyticsStore interface {
	GetAnalyticsSummary(ctx context.Context, arg database.AnalyticsSummaryParams) (database.AnalyticsSummaryRow, error)
	GetAnalyticsProducts(ctx context.Context, arg database.AnalyticsProductsParams) ([]database.AnalyticsProductsRow, error)
	GetAnalyticsStaff(ctx context.Context, arg database.AnalyticsStaffParams) ([]database.AnalyticsStaffRow, error)
	GetAnalyticsOrders(ctx context.Context, arg database.AnalyticsOrdersParams) ([]database.AnalyticsOrdersRow, error)
	CountAnalyticsOrders(ctx context.Context, arg database.AnalyticsOrdersParams) (int64, error)
}

// AnalyticsHandler handles the owner dashboard endpoints.
type AnalyticsHandler struct {
	store AnalyticsStore
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(store AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

// --- Response types ---

type dateRangeResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type analyticsSummaryResponse struct {
	Revenue     string            `json:"revenue"`
	Orders      int64             `json:"orders"`
	Aov         string            `json:"aov"`
	Guests      int64             `json:"guests"`
	OpenTabs    int64             `json:"open_tabs"`
	PaymentRate float64           `json:"payment_rate"`
	Range       dateRangeResponse `json:"range"`
}

type analyticsProductResponse struct {
	SKU     string `json:"sku"`
	Name    string `json:"name"`
	Qty     int64  `json:"qty"`
	Revenue string `json:"revenue"`
}

type analyticsStaffResponse struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Orders  int64  `json:"orders"`
	Revenue string `json:"revenue"`
	Aov     string `json:"aov"`
	Guests  int64  `json:"guests"`
}

type analyticsOrderResponse struct {
	ID          int64     `json:"id"`
	TableID     int64     `json:"table_id"`
	TableNumber *int32    `json:"table_number"`
	UserID      int64     `json:"user_id"`
	OrderedBy   *string   `json:"ordered_by"`
	Status      string    `json:"status"`
	Seats       *int32    `json:"seats"`
	Revenue     string    `json:"revenue"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type analyticsOrdersResponse struct {
	Orders     []analyticsOrderResponse `json:"orders"`
	Pagination paginationResponse       `json:"pagination"`
	Range      dateRangeResponse        `json:"range"`
}

// --- Handlers ---

// Summary handles GET /analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	role, ok := h.roleFilter(w, r)
	if !ok {
		return
	}

	params := database.AnalyticsSummaryParams{Start: start, End: end, Role: role}
	if s := r.URL.Query().Get("sku"); s != "" {
		params.SKU = pgtype.Text{String: s, Valid: true}
	}

	row, err := h.store.GetAnalyticsSummary(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: analytics summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, analyticsSummaryResponse{
		Revenue:     numericToString(row.Revenue),
		Orders:      row.Orders,
		Aov:         numericToString(row.Aov),
		Guests:      row.Guests,
		OpenTabs:    row.OpenTabs,
		PaymentRate: numericToFloat(row.PaymentRate),
		Range:       dateRangeResponse{Start: start, End: end},
	})
}

// Products handles GET /analytics/products, the top sellers by quantity.
func (h *AnalyticsHandler) Products(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	role, ok := h.roleFilter(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetAnalyticsProducts(r.Context(), database.AnalyticsProductsParams{
		Start: start, End: end, Role: role,
	})
	if err != nil {
		log.Printf("ERROR: analytics products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]analyticsProductResponse, len(rows))
	for i, row := range rows {
		resp[i] = analyticsProductResponse{
			SKU:     row.SKU.String,
			Name:    row.Name.String,
			Qty:     row.TotalQty,
			Revenue: numericToString(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Staff handles GET /analytics/staff, the leaderboard by revenue.
func (h *AnalyticsHandler) Staff(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	role, ok := h.roleFilter(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetAnalyticsStaff(r.Context(), database.AnalyticsStaffParams{
		Start: start, End: end, Role: role,
	})
	if err != nil {
		log.Printf("ERROR: analytics staff: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]analyticsStaffResponse, len(rows))
	for i, row := range rows {
		resp[i] = analyticsStaffResponse{
			UserID:  row.UserID,
			Name:    row.Name,
			Role:    row.Role,
			Orders:  row.Orders,
			Revenue: numericToString(row.Revenue),
			Aov:     numericToString(row.Aov),
			Guests:  row.Guests,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Orders handles GET /analytics/orders, the sortable searchable listing.
func (h *AnalyticsHandler) Orders(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	role, ok := h.roleFilter(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	page := 1
	if s := q.Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	perPage := defaultPerPage
	if s := q.Get("per_page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			perPage = v
		}
	}
	if perPage < minPerPage {
		perPage = minPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	params := database.AnalyticsOrdersParams{
		Start:   start,
		End:     end,
		Role:    role,
		SortBy:  q.Get("sort_by"),
		SortAsc: strings.EqualFold(q.Get("sort_dir"), "asc"),
		Limit:   int32(perPage),
		Offset:  int32((page - 1) * perPage),
	}

	if s := q.Get("table_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.Int8{Int64: id, Valid: true}
	}
	if s := q.Get("q"); s != "" {
		params.Search = pgtype.Text{String: "%" + s + "%", Valid: true}
	}

	rows, err := h.store.GetAnalyticsOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: analytics orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var total int64
	if len(rows) > 0 {
		total = rows[0].TotalCount
	} else {
		// The requested page is past the end; count separately so the
		// pagination block still reports the real total.
		total, err = h.store.CountAnalyticsOrders(r.Context(), params)
		if err != nil {
			log.Printf("ERROR: count analytics orders: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	resp := make([]analyticsOrderResponse, len(rows))
	for i, row := range rows {
		o := analyticsOrderResponse{
			ID:        row.ID,
			TableID:   row.TableID,
			UserID:    row.UserID,
			Status:    row.Status,
			Revenue:   numericToString(row.Revenue),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		if row.TableNumber.Valid {
			o.TableNumber = &row.TableNumber.Int32
		}
		if row.OrderedBy.Valid {
			o.OrderedBy = &row.OrderedBy.String
		}
		if row.Seats.Valid {
			o.Seats = &row.Seats.Int32
		}
		resp[i] = o
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)

	writeJSON(w, http.StatusOK, analyticsOrdersResponse{
		Orders: resp,
		Pagination: paginationResponse{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
		Range: dateRangeResponse{Start: start, End: end},
	})
}

// --- Helpers ---

// dateRange resolves the reporting window from preset or explicit
// start/end query params (from/to are accepted as aliases). On a bad
// request it writes the 400 itself and returns ok=false.
func (h *AnalyticsHandler) dateRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	q := r.URL.Query()

	startStr := q.Get("start")
	if startStr == "" {
		startStr = q.Get("from")
	}
	endStr := q.Get("end")
	if endStr == "" {
		endStr = q.Get("to")
	}
	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end must be provided together"})
			return
		}
		from, err := time.ParseInLocation("2006-01-02", startStr, time.UTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start date, use YYYY-MM-DD"})
			return
		}
		to, err := time.ParseInLocation("2006-01-02", endStr, time.UTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end date, use YYYY-MM-DD"})
			return
		}
		if to.Before(from) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must not be before start"})
			return
		}
		return from, endOfDay(to), true
	}

	start, end, err := resolveDateRange(q.Get("preset"), time.Now().UTC())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return start, end, false
	}
	return start, end, true
}

// resolveDateRange converts a preset name into a concrete UTC window
// ending at the last instant of today. An empty preset means the last
// seven days.
func resolveDateRange(preset string, now time.Time) (start, end time.Time, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end = endOfDay(today)

	switch preset {
	case "", enum.PresetLast7Days:
		start = today.AddDate(0, 0, -6)
	case enum.PresetLast30Days:
		start = today.AddDate(0, 0, -29)
	case enum.PresetQuarterToDate:
		quarterMonth := time.Month(((int(today.Month())-1)/3)*3 + 1)
		start = time.Date(today.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
	case enum.PresetYearToDate:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return start, end, errInvalidPreset
	}
	return start, end, nil
}

var errInvalidPreset = errors.New("invalid preset, use 7d, 30d, qtd, or ytd")

// roleFilter parses and validates the optional role query param.
func (h *AnalyticsHandler) roleFilter(w http.ResponseWriter, r *http.Request) (pgtype.Text, bool) {
	s := r.URL.Query().Get("role")
	if s == "" {
		return pgtype.Text{}, true
	}
	if !enum.IsValidRole(s) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return pgtype.Text{}, false
	}
	return pgtype.Text{String: s, Valid: true}, true
}
