package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mycafe-pos/api/internal/cache"
	"github.com/mycafe-pos/api/internal/config"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
	"github.com/mycafe-pos/api/internal/events"
	"github.com/mycafe-pos/api/internal/handler"
	mw "github.com/mycafe-pos/api/internal/middleware"
	"github.com/mycafe-pos/api/internal/service"
	"github.com/mycafe-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Read endpoints are open to every staff role; order mutations belong to
// cashiers and admins, kitchen gets the line-status endpoint, and master
// data plus staff accounts are admin territory.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, kpiCache *cache.Cache, producer *events.Producer) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"https://admin.mycafe.id",
			"https://order.mycafe.id",
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

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newOrderStore)

	newPaymentStore := func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	}
	snapClient := service.NewSnapClient(cfg.MidtransServerKey, cfg.MidtransEnv)
	paymentService := service.NewPaymentService(pool, newPaymentStore, snapClient)

	dashboardService := service.NewDashboardService(queries, kpiCache)

	// Handlers
	orderHandler := handler.NewOrderHandler(orderService, queries, hub, producer)
	paymentHandler := handler.NewPaymentHandler(paymentService, hub, producer)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	tableHandler := handler.NewTableHandler(queries, hub, cfg.OrderBaseURL)
	menuHandler := handler.NewMenuHandler(queries, hub)
	userHandler := handler.NewUserHandler(queries)

	// Gateway webhook (public; authenticated by the gateway's server key,
	// not a staff token)
	paymentHandler.RegisterNotificationRoute(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Orders
		r.Route("/orders", func(r chi.Router) {
			// every role sees the floor; kitchen also moves line statuses
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier, enum.UserRoleKitchen))
				orderHandler.RegisterReadRoutes(r)
				orderHandler.RegisterMenuStatusRoute(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier))
				orderHandler.RegisterWriteRoutes(r)
				paymentHandler.RegisterOrderRoutes(r)
			})
		})

		// Tables
		r.Route("/tables", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier, enum.UserRoleKitchen))
				tableHandler.RegisterReadRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				tableHandler.RegisterWriteRoutes(r)
			})
		})

		// Menus
		r.Route("/menus", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier, enum.UserRoleKitchen))
				menuHandler.RegisterReadRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				menuHandler.RegisterWriteRoutes(r)
			})
		})

		// Staff accounts (admin only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/users", userHandler.RegisterRoutes)
		})

		// Dashboard
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier))
			r.Route("/dashboard", dashboardHandler.RegisterRoutes)
		})
	})

	return r
}
