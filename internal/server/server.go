// Package server assembles the Fiber application and its routes.
package server

import (
	"strings"
	"time"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/config"
	"silvess-backend/internal/dashboard"
	"silvess-backend/internal/database"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/inventory"
	"silvess-backend/internal/logger"
	"silvess-backend/internal/menu"
	"silvess-backend/internal/metrics"
	"silvess-backend/internal/models"
	"silvess-backend/internal/ratelimit"
	"silvess-backend/internal/sales"
	"silvess-backend/internal/sheet"
	"silvess-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New builds the HTTP application. rdb may be nil, which disables the login
// rate limit.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "silvess-backend",
		ErrorHandler:          httpx.ErrorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.Middleware(log))
	if cfg.MetricsEnabled {
		app.Use(metrics.Middleware())
		app.Get("/metrics", metrics.Handler())
	}

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: logger.RequestIDHeader,
	}))

	app.Get("/health", healthHandler(db))

	loginLimit := ratelimit.New(rdb, "ratelimit:login", cfg.LoginRateLimit, time.Minute)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", auth.RegisterHandler(db, cfg))
	api.Post("/auth/login", loginLimit.Middleware(), auth.LoginHandler(db, cfg))
	api.Get("/menus", menu.ListMenusHandler(db))
	api.Get("/menus/:id<int>", menu.GetMenuHandler(db))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Post("/auth/change-password", auth.ChangePasswordHandler(db))

	// Ingredients and stock ledger
	protected.Get("/ingredients", stock.ListIngredientsHandler(db))
	protected.Post("/ingredients", stock.CreateIngredientHandler(db))
	protected.Post("/ingredients/import", stock.ImportIngredientsHandler(db))
	protected.Get("/ingredients/low-stock", stock.LowStockHandler(db))
	protected.Get("/ingredients/:id", stock.GetIngredientHandler(db))
	protected.Put("/ingredients/:id", stock.UpdateIngredientHandler(db))
	protected.Delete("/ingredients/:id", adminOnly, stock.DeleteIngredientHandler(db))
	protected.Post("/ingredients/:id/stock", stock.StockMovementHandler(db))
	protected.Get("/ingredients/:id/movements", stock.MovementHistoryHandler(db))

	// Technical sheets
	protected.Get("/sheets", sheet.ListSheetsHandler(db))
	protected.Post("/sheets", sheet.CreateSheetHandler(db))
	protected.Get("/sheets/categories", sheet.CategoriesHandler(db))
	protected.Post("/sheets/cost-preview", sheet.CostPreviewHandler(db))
	protected.Get("/sheets/:id", sheet.GetSheetHandler(db))
	protected.Put("/sheets/:id", sheet.UpdateSheetHandler(db))
	protected.Delete("/sheets/:id", adminOnly, sheet.DeleteSheetHandler(db))

	// Inventory counts
	protected.Get("/inventory", inventory.ListInventoryHandler(db))
	protected.Post("/inventory/generate", inventory.GenerateInventoryHandler(db))
	protected.Put("/inventory/:id", inventory.RecordCountHandler(db))
	protected.Post("/inventory/close/:date", inventory.CloseInventoryHandler(db))
	protected.Post("/inventory/reopen/:date", adminOnly, inventory.ReopenInventoryHandler(db))
	protected.Get("/inventory/report/:date", inventory.InventoryReportHandler(db))

	// Menus and tables
	protected.Post("/menus", menu.CreateMenuHandler(db))
	protected.Put("/menus/:id<int>", menu.UpdateMenuHandler(db))
	protected.Delete("/menus/:id<int>", menu.DeleteMenuHandler(db))
	protected.Put("/menus/:id<int>/dishes/:dishId<int>/availability", menu.DishAvailabilityHandler(db))
	protected.Get("/menus/tables", menu.ListTablesHandler(db, cfg))
	protected.Post("/menus/tables", menu.CreateTableHandler(db, cfg))
	protected.Put("/menus/tables/:id", menu.UpdateTableHandler(db, cfg))
	protected.Get("/menus/tables/:id/qrcode", menu.TableCodeHandler(db, cfg))

	// Dashboard, sales and reports
	protected.Get("/dashboard/stats", dashboard.StatsHandler(db))
	protected.Get("/dashboard/sales-chart", dashboard.SalesChartHandler(db))
	protected.Get("/dashboard/sales", sales.ListSalesHandler(db))
	protected.Post("/dashboard/sales", sales.RecordSaleHandler(db))
	protected.Get("/dashboard/reports/sales", sales.SalesReportHandler(db))
	protected.Get("/dashboard/reports/stock", dashboard.StockReportHandler(db))

	// Audit trail
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(db))

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(db); err != nil {
			logger.FromCtx(c).Error("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
