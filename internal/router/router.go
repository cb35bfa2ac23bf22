package router

import (
	"net/http"

	"github.com/fume-lounge/api/internal/config"
	"github.com/fume-lounge/api/internal/database"
	"github.com/fume-lounge/api/internal/enum"
	"github.com/fume-lounge/api/internal/handler"
	mw "github.com/fume-lounge/api/internal/middleware"
	"github.com/fume-lounge/api/internal/service"
	"github.com/fume-lounge/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // floor tablet dev server
			"http://localhost:3000", // dashboard dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	tableHandler := handler.NewTableHandler(queries)
	analyticsHandler := handler.NewAnalyticsHandler(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Get("/me", authHandler.Me)

		// Floor staff routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleServer, enum.RoleManager, enum.RoleOwner))

			r.Get("/tables", tableHandler.List)
			r.Get("/tables/{id}/orders", tableHandler.ListOrders)
			r.Post("/orders", orderHandler.Submit)
			r.Get("/orders/open", orderHandler.Open)
			r.Patch("/orders/{id}", orderHandler.UpdateStatus)
		})

		// Back-office listing routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleManager, enum.RoleOwner))

			r.Get("/orders", orderHandler.List)
			r.Get("/orders/summary", orderHandler.Summary)
		})

		// Owner dashboard routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleOwner))

			r.Get("/analytics/summary", analyticsHandler.Summary)
			r.Get("/analytics/products", analyticsHandler.Products)
			r.Get("/analytics/staff", analyticsHandler.Staff)
			r.Get("/analytics/orders", analyticsHandler.Orders)
		})
	})

	return r
}
