package dashboard

import (
	"time"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var ErrInvalidPeriod = apperr.Validation("period must be daily, weekly or monthly")

type ChartPoint struct {
	Label   string          `json:"label"` // first day of the bucket
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type SalesChart struct {
	Period  string          `json:"period"` // daily | weekly | monthly
	From    string          `json:"from"`
	To      string          `json:"to"`
	Points  []ChartPoint    `json:"points"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DefaultCount is the number of buckets shown when none is asked for.
func DefaultCount(period string) int {
	switch period {
	case "weekly":
		return 8
	case "monthly":
		return 12
	default:
		return 7
	}
}

// BuildSalesChart buckets the revenue of the last count days, weeks
// (starting Monday) or months up to now. Every bucket is present, empty
// ones with zero revenue.
func BuildSalesChart(tx *gorm.DB, period string, count int, now time.Time) (*SalesChart, error) {
	if count <= 0 {
		return nil, apperr.Validation("count must be positive")
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	var next func(time.Time) time.Time
	switch period {
	case "daily":
		start = today.AddDate(0, 0, -(count - 1))
		end = today.AddDate(0, 0, 1)
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case "weekly":
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		start = monday.AddDate(0, 0, -7*(count-1))
		end = monday.AddDate(0, 0, 7)
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "monthly":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = first.AddDate(0, -(count - 1), 0)
		end = first.AddDate(0, 1, 0)
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return nil, ErrInvalidPeriod
	}

	var sales []models.Sale
	if err := tx.Select("sold_at", "total_price").
		Where("sold_at >= ? AND sold_at < ?", start, end).
		Order("sold_at ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}

	chart := &SalesChart{
		Period:  period,
		From:    start.Format(dateLayout),
		To:      end.AddDate(0, 0, -1).Format(dateLayout),
		Points:  make([]ChartPoint, 0, count),
		Revenue: decimal.Zero,
	}

	i := 0
	for b := start; b.Before(end); b = next(b) {
		upper := next(b)
		p := ChartPoint{Label: b.Format(dateLayout), Revenue: decimal.Zero}
		for ; i < len(sales) && sales[i].SoldAt.UTC().Before(upper); i++ {
			p.Count++
			p.Revenue = p.Revenue.Add(sales[i].TotalPrice)
		}
		chart.Count += p.Count
		chart.Revenue = chart.Revenue.Add(p.Revenue)
		chart.Points = append(chart.Points, p)
	}
	return chart, nil
}
