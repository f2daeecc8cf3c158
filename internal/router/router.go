package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/salle-pos/api/internal/config"
	"github.com/salle-pos/api/internal/database"
	"github.com/salle-pos/api/internal/enum"
	"github.com/salle-pos/api/internal/handler"
	"github.com/salle-pos/api/internal/logger"
	mw "github.com/salle-pos/api/internal/middleware"
	"github.com/salle-pos/api/internal/service"
	"github.com/salle-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Authentication and role gates are applied per route group; the
// lifecycle rules themselves enforce role permissions a second time
// inside the order service.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // dev frontend
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
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

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, queries, newOrderStore)
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Dishes and categories
		dishHandler := handler.NewDishHandler(queries, hub)
		r.Route("/dishes", func(r chi.Router) {
			r.Get("/", dishHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleManager))
				r.Post("/", dishHandler.Create)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCook, enum.RoleManager))
				r.Patch("/{id}/availability", dishHandler.UpdateAvailability)
			})
		})
		r.Route("/categories", dishHandler.RegisterCategoryRoutes)

		// Tables
		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", func(r chi.Router) {
			r.Get("/", tableHandler.List)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleWaiter, enum.RoleManager))
				r.Patch("/{id}/status", tableHandler.UpdateStatus)
			})
		})

		// Users (manager only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleManager))
			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
