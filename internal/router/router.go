package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/wrenchwise/workshop-api/internal/api/auth"
	"github.com/wrenchwise/workshop-api/internal/api/customer"
	"github.com/wrenchwise/workshop-api/internal/api/dashboard"
	"github.com/wrenchwise/workshop-api/internal/api/inventory"
	"github.com/wrenchwise/workshop-api/internal/api/notification"
	"github.com/wrenchwise/workshop-api/internal/api/user"
	"github.com/wrenchwise/workshop-api/internal/api/vehicle"
	"github.com/wrenchwise/workshop-api/internal/api/workorder"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// Config carries every handler and the auth middleware the router mounts.
type Config struct {
	AuthMiddleware      *auth.Middleware
	AuthHandler         auth.Handler
	UserHandler         user.Handler
	CustomerHandler     customer.Handler
	VehicleHandler      vehicle.Handler
	WorkOrderHandler    workorder.Handler
	InventoryHandler    inventory.Handler
	NotificationHandler notification.Handler
	DashboardHandler    dashboard.Handler
}

// SetupRouter wires the full route tree. Every request gets a session;
// state-changing requests additionally pass the CSRF check. The CRUD
// surface sits behind RequireLogin, and user administration behind an
// admin role gate.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.AuthMiddleware.WithSession)
		r.Use(cfg.AuthMiddleware.VerifyCSRF)

		// Public: login and the CSRF token needed to perform it.
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Get("/auth/csrf", cfg.AuthHandler.CSRF)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireLogin)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)

			r.Get("/dashboard", cfg.DashboardHandler.Summary)

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", cfg.CustomerHandler.List)
				r.Post("/", cfg.CustomerHandler.Create)
				r.Get("/{id}", cfg.CustomerHandler.Get)
				r.Put("/{id}", cfg.CustomerHandler.Update)
				r.Delete("/{id}", cfg.CustomerHandler.Delete)
				r.Get("/{id}/vehicles", cfg.VehicleHandler.ListByCustomer)
			})

			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/", cfg.VehicleHandler.List)
				r.Post("/", cfg.VehicleHandler.Create)
				r.Get("/lookup", cfg.VehicleHandler.LookupPlate)
				r.Get("/{id}", cfg.VehicleHandler.Get)
				r.Put("/{id}", cfg.VehicleHandler.Update)
				r.Delete("/{id}", cfg.VehicleHandler.Delete)
			})

			r.Route("/work-orders", func(r chi.Router) {
				r.Get("/", cfg.WorkOrderHandler.List)
				r.Post("/", cfg.WorkOrderHandler.Create)
				r.Get("/{id}", cfg.WorkOrderHandler.Get)
				r.Put("/{id}", cfg.WorkOrderHandler.Update)
				r.Post("/{id}/status", cfg.WorkOrderHandler.ChangeStatus)
				r.Get("/{id}/parts", cfg.WorkOrderHandler.ListParts)
				r.Post("/{id}/parts", cfg.WorkOrderHandler.AddPart)
				r.Delete("/{id}/parts/{part_id}", cfg.WorkOrderHandler.RemovePart)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/", cfg.InventoryHandler.Create)
				r.Get("/low-stock", cfg.InventoryHandler.ListLowStock)
				r.Get("/{id}", cfg.InventoryHandler.Get)
				r.Put("/{id}", cfg.InventoryHandler.Update)

				// Stock adjustments are for managers and admins only.
				r.With(cfg.AuthMiddleware.RequireRole(types.RoleAdmin, types.RoleManager)).
					Post("/{id}/adjust", cfg.InventoryHandler.AdjustStock)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.NotificationHandler.List)
				r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
				r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
				r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			})
		})

		// User administration and destructive deletes are admin-only.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireLogin)
			r.Use(cfg.AuthMiddleware.RequireRole(types.RoleAdmin))

			r.Delete("/work-orders/{id}", cfg.WorkOrderHandler.Delete)
			r.Delete("/inventory/{id}", cfg.InventoryHandler.Delete)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.List)
				r.Post("/", cfg.UserHandler.Create)
				r.Get("/{id}", cfg.UserHandler.Get)
				r.Put("/{id}", cfg.UserHandler.Update)
				r.Delete("/{id}", cfg.UserHandler.Delete)
				r.Post("/{id}/deactivate", cfg.UserHandler.Deactivate)
				r.Post("/{id}/unlock", cfg.UserHandler.Unlock)
			})
		})
	})

	return r
}
