// Package dashboard serves the home screen figures and the stock report.
package dashboard

import (
	"sort"
	"time"

	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesFigures struct {
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Stats struct {
	Ingredients struct {
		Total    int64 `json:"total"`
		LowStock int64 `json:"low_stock"`
	} `json:"ingredients"`
	Sheets int64 `json:"technical_sheets"`
	Tables int64 `json:"tables"`
	Menus  int64 `json:"menus"`
	Sales  struct {
		Month SalesFigures `json:"month"`
		Today SalesFigures `json:"today"`
	} `json:"sales"`
}

// Collect counts the active records and the sales of the current month and
// day. Month and day boundaries are UTC.
func Collect(tx *gorm.DB, now time.Time) (*Stats, error) {
	var s Stats
	counts := []struct {
		model any
		where string
		out   *int64
	}{
		{&models.Ingredient{}, "active = ?", &s.Ingredients.Total},
		{&models.Ingredient{}, "active = ? AND current_stock <= minimum_stock", &s.Ingredients.LowStock},
		{&models.TechnicalSheet{}, "active = ?", &s.Sheets},
		{&models.Table{}, "active = ?", &s.Tables},
		{&models.Menu{}, "active = ?", &s.Menus},
	}
	for _, c := range counts {
		if err := tx.Model(c.model).Where(c.where, true).Count(c.out).Error; err != nil {
			return nil, err
		}
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var err error
	if s.Sales.Month, err = salesSince(tx, monthStart, today.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	if s.Sales.Today, err = salesSince(tx, today, today.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	return &s, nil
}

func salesSince(tx *gorm.DB, from, to time.Time) (SalesFigures, error) {
	var totals []decimal.Decimal
	if err := tx.Model(&models.Sale{}).
		Where("sold_at >= ? AND sold_at < ?", from, to).
		Pluck("total_price", &totals).Error; err != nil {
		return SalesFigures{}, err
	}
	f := SalesFigures{Count: int64(len(totals)), Revenue: decimal.Zero}
	for _, t := range totals {
		f.Revenue = f.Revenue.Add(t)
	}
	return f, nil
}

type StockStatus string

const (
	StatusCritical StockStatus = "critical"
	StatusLow      StockStatus = "low"
	StatusNormal   StockStatus = "normal"
)

var lowFactor = decimal.RequireFromString("1.5")

// StatusOf grades an ingredient: critical at or under the minimum, low up
// to one and a half times the minimum.
func StatusOf(ing models.Ingredient) StockStatus {
	switch {
	case ing.CurrentStock.LessThanOrEqual(ing.MinimumStock):
		return StatusCritical
	case ing.CurrentStock.LessThanOrEqual(ing.MinimumStock.Mul(lowFactor)):
		return StatusLow
	default:
		return StatusNormal
	}
}

type StockLine struct {
	models.Ingredient
	StockValue decimal.Decimal `json:"stock_value"`
	Status     StockStatus     `json:"status"`
}

type StockReport struct {
	Total      int             `json:"total_ingredients"`
	TotalValue decimal.Decimal `json:"total_stock_value"`
	Critical   int             `json:"critical"`
	Low        int             `json:"low"`
	Lines      []StockLine     `json:"ingredients"`
}

// BuildStockReport values the stock of every active ingredient as
// stock * unit cost / 1000 and lists critical items first.
func BuildStockReport(tx *gorm.DB) (*StockReport, error) {
	var list []models.Ingredient
	if err := tx.Where("active = ?", true).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	r := &StockReport{Total: len(list), TotalValue: decimal.Zero, Lines: make([]StockLine, 0, len(list))}
	for _, ing := range list {
		line := StockLine{
			Ingredient: ing,
			StockValue: ing.CurrentStock.Mul(ing.UnitCost).Div(decimal.NewFromInt(1000)).Round(4),
			Status:     StatusOf(ing),
		}
		switch line.Status {
		case StatusCritical:
			r.Critical++
		case StatusLow:
			r.Low++
		}
		r.TotalValue = r.TotalValue.Add(line.StockValue)
		r.Lines = append(r.Lines, line)
	}

	rank := map[StockStatus]int{StatusCritical: 0, StatusLow: 1, StatusNormal: 2}
	sort.SliceStable(r.Lines, func(i, j int) bool {
		return rank[r.Lines[i].Status] < rank[r.Lines[j].Status]
	})
	return r, nil
}
