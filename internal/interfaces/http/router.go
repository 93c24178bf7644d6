package http

import (
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/endmill-ledger/internal/application/inventory"
	"github.com/jhoicas/endmill-ledger/internal/infrastructure/metrics"
)

// AppConfig opciones de la aplicación Fiber.
type AppConfig struct {
	Name        string
	SwaggerPath string // se sirve en /docs sólo si el archivo existe
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
}

// NewApp crea la app Fiber con middlewares comunes, /health, /metrics y /docs.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorHandler(cfg.Logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(RequestLogger(cfg.Logger))
	app.Use(MetricsMiddleware(cfg.Metrics))

	if cfg.SwaggerPath != "" {
		if _, err := os.Stat(cfg.SwaggerPath); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.SwaggerPath,
				Path:     "docs",
				Title:    "Endmill Ledger API",
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	return app
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Coordinator *inventory.StockMovementCoordinator
	Reconciler  *inventory.Reconciler
	Logger      zerolog.Logger
	JWTSecret   string
	// AdminRoles pueden reconciliar, cambiar límites y operar sobre otra fábrica que la del
	// token. Sólo aplica con JWT habilitado.
	AdminRoles []string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (Bearer Token cuando JWT_SECRET está definido)
	inv := api.Group("/inventory", AuthMiddleware(deps.JWTSecret))
	admin := RequireRole()
	var adminRoles []string
	if deps.JWTSecret != "" {
		adminRoles = deps.AdminRoles
		admin = RequireRole(adminRoles...)
	}

	h := NewInventoryHandler(deps.Coordinator, deps.Logger, adminRoles...)
	inv.Post("/inbound", h.CreateInbound)
	inv.Get("/inbound", h.ListInbound)
	inv.Put("/inbound/:id", h.UpdateInbound)
	inv.Delete("/inbound/:id", h.DeleteInbound)

	inv.Post("/outbound", h.CreateOutbound)
	inv.Get("/outbound", h.ListOutbound)
	inv.Put("/outbound/:id", h.UpdateOutbound)
	inv.Delete("/outbound/:id", h.DeleteOutbound)

	inv.Get("/stock", h.ListStock)
	inv.Put("/stock/:toolTypeCode/bounds", admin, h.SetBounds)
	inv.Get("/equipment/:id/tool-changes", h.ToolChanges)

	if deps.Reconciler != nil {
		rh := NewReconcileHandler(deps.Reconciler, deps.Logger)
		inv.Post("/reconcile", admin, rh.Reconcile)
	}
}
