package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/jhoicas/bar-ledger/pkg/jwt"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service         *ledger.Service
	Queries         *ledger.QueryService
	JWTSecret       string
	AppName         string
	LowStockDefault float64
	RecentLimit     int
	ConflictRetries int
	Metrics         HTTPMetrics     // opcional
	MetricsHandler  nethttp.Handler // opcional, se expone en /metrics
	Log             zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleStaff)
	adminOnly := RequireRole(jwt.RoleAdmin)

	productHandler := NewProductHandler(deps.Service, deps.Queries, deps.LowStockDefault, deps.Log)
	ledgerHandler := NewLedgerHandler(deps.Service, deps.Queries, deps.ConflictRetries, deps.RecentLimit, deps.Log)

	// Products: las rutas fijas van antes de /:id
	products := api.Group("/products")
	products.Post("/", adminOnly, productHandler.Create)
	products.Get("/", anyRole, productHandler.List)
	products.Get("/low-stock", anyRole, productHandler.LowStock)
	products.Get("/depleted", anyRole, productHandler.Depleted)
	products.Get("/:id", anyRole, productHandler.GetByID)
	products.Patch("/:id", adminOnly, productHandler.Update)
	products.Delete("/:id", adminOnly, productHandler.Delete)
	products.Put("/:id/remaining", anyRole, ledgerHandler.ApplyChange)
	products.Get("/:id/history", anyRole, ledgerHandler.History)
	products.Get("/:id/verify", adminOnly, ledgerHandler.Verify)

	// Ledger
	entries := api.Group("/ledger")
	entries.Get("/", anyRole, ledgerHandler.List)
	entries.Get("/recent", anyRole, ledgerHandler.Recent)
	entries.Get("/:id", anyRole, ledgerHandler.GetEntry)
}
