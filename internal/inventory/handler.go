package inventory

import (
	"fmt"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/metrics"
	"silvess-backend/internal/models"
	"silvess-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GenerateRequest struct {
	InventoryDate string `json:"inventory_date" validate:"omitempty,date"`
}

type RecordCountRequest struct {
	PhysicalQuantity *decimal.Decimal `json:"physical_quantity" validate:"required,gte=0"`
	Notes            *string          `json:"notes" validate:"omitempty,max=255"`
	AdjustStock      bool             `json:"adjust_stock"`
}

var workflow = NewWorkflow(stock.NewLedger())

// GET /api/inventory?from=2024-01-01&to=2024-01-31&ingredient_id=3
func ListInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := workflow.List(db.WithContext(c.UserContext()), Filter{
			From:         c.Query("from"),
			To:           c.Query("to"),
			IngredientID: httpx.QueryUint(c, "ingredient_id"),
		})
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}

// POST /api/inventory/generate
func GenerateInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body GenerateRequest
		if len(c.Body()) > 0 {
			if err := httpx.Bind(c, &body); err != nil {
				return err
			}
		}
		date := body.InventoryDate
		if date == "" {
			date = Today()
		}
		actor, _ := auth.Current(c)

		var res *GenerateResult
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = workflow.Generate(tx, date, auth.UserIDPtr(c))
			if err != nil {
				return err
			}
			if res.Created == 0 {
				return nil
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "inventory",
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Inventory generated for %s (%d items)", date, res.Created),
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// PUT /api/inventory/:id
func RecordCountHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body RecordCountRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var res *CountResult
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = workflow.RecordCount(tx, id, CountInput{
				Physical:    *body.PhysicalQuantity,
				Notes:       body.Notes,
				AdjustStock: body.AdjustStock,
				UserID:      auth.UserIDPtr(c),
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "inventory",
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Physical count recorded for %s", res.Record.InventoryDate),
				After:       res.Record,
			})
		})
		if err != nil {
			return err
		}

		if res.Adjustment != nil {
			metrics.RecordMovement(string(res.Adjustment.Movement.Kind), string(res.Adjustment.Movement.Source))
		}
		return c.JSON(fiber.Map{
			"system_quantity":   res.Record.SystemQuantity,
			"physical_quantity": res.Record.PhysicalQuantity,
			"difference":        res.Record.Difference,
			"stock_adjusted":    res.Adjusted,
			"record":            res.Record,
		})
	}
}

// POST /api/inventory/close/:date
func CloseInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Params("date")
		actor, _ := auth.Current(c)

		var closed int64
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			closed, err = workflow.Close(tx, date)
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "inventory",
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Inventory closed for %s", date),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":        "inventory closed",
			"inventory_date": date,
			"closed_items":   closed,
		})
	}
}

// POST /api/inventory/reopen/:date (admin)
func ReopenInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date := c.Params("date")
		actor, _ := auth.Current(c)

		var reopened int64
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			reopened, err = workflow.Reopen(tx, date)
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "inventory",
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Inventory reopened for %s", date),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message":        "inventory reopened",
			"inventory_date": date,
			"reopened_items": reopened,
		})
	}
}

// GET /api/inventory/report/:date
func InventoryReportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := workflow.Report(db.WithContext(c.UserContext()), c.Params("date"))
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}
