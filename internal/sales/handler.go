package sales

import (
	"fmt"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/metrics"
	"silvess-backend/internal/models"
	"silvess-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RecordSaleRequest struct {
	SheetID  uint  `json:"sheet_id" validate:"required"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
	TableID  *uint `json:"table_id" validate:"omitempty,gt=0"`
}

var recorder = NewRecorder(stock.NewLedger())

// GET /api/dashboard/sales?from=2024-05-01&to=2024-05-31&table_id=2
func ListSalesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := recorder.List(db.WithContext(c.UserContext()), Filter{
			From:    c.Query("from"),
			To:      c.Query("to"),
			TableID: httpx.QueryUint(c, "table_id"),
		})
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}

// POST /api/dashboard/sales
func RecordSaleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecordSaleRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var receipt *Receipt
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			receipt, err = recorder.Record(tx, SaleInput{
				SheetID:  body.SheetID,
				Quantity: body.Quantity,
				TableID:  body.TableID,
				UserID:   auth.UserIDPtr(c),
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "sale",
				EntityID:    receipt.Sale.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Sale recorded: %s (x%d)", receipt.DishName, receipt.Sale.Quantity),
				After:       receipt.Sale,
			})
		})
		if err != nil {
			return err
		}

		metrics.RecordSale(receipt.Sale.TotalPrice)
		for _, mv := range receipt.Movements {
			metrics.RecordMovement(string(mv.Kind), string(mv.Source))
		}
		return c.Status(fiber.StatusCreated).JSON(receipt)
	}
}

// GET /api/dashboard/reports/sales?from=2024-05-01&to=2024-05-31
func SalesReportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			return fiber.NewError(fiber.StatusBadRequest, "from and to are required")
		}
		summary, err := recorder.Summarize(db.WithContext(c.UserContext()), from, to)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}
