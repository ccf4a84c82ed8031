package dashboard

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/dashboard/stats
func StatsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := Collect(db.WithContext(c.UserContext()), time.Now())
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}

// GET /api/dashboard/reports/stock?format=xlsx
func StockReportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := BuildStockReport(db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		if c.Query("format") != "xlsx" {
			return c.JSON(report)
		}

		buf, err := report.WriteXLSX()
		if err != nil {
			return err
		}
		c.Attachment("stock-" + time.Now().Format(dateLayout) + ".xlsx")
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
}

// GET /api/dashboard/sales-chart?period=daily&count=7
func SalesChartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		count := DefaultCount(period)
		if raw := c.Query("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid count")
			}
			count = n
		}

		chart, err := BuildSalesChart(db.WithContext(c.UserContext()), period, count, time.Now())
		if err != nil {
			return err
		}
		return c.JSON(chart)
	}
}
