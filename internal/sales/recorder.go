// Package sales records dish sales and draws the recipe ingredients out of
// stock in the same transaction.
package sales

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"
	"silvess-backend/internal/stock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var (
	ErrSheetNotFound   = apperr.NotFound("technical sheet not found")
	ErrSheetInactive   = apperr.Rule("technical sheet is inactive")
	ErrTableNotFound   = apperr.NotFound("table not found")
	ErrInvalidQuantity = apperr.Validation("quantity must be greater than zero")
	ErrInvalidPeriod   = apperr.Validation("from and to must be YYYY-MM-DD dates with from <= to")

	gramsPerKilo = decimal.NewFromInt(1000)
)

type Recorder struct {
	ledger *stock.Ledger
	now    func() time.Time
}

func NewRecorder(ledger *stock.Ledger) *Recorder {
	return &Recorder{ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
}

type SaleInput struct {
	SheetID  uint
	Quantity int
	TableID  *uint
	UserID   *uint
}

// Receipt is a recorded sale with the stock exits it caused.
type Receipt struct {
	Sale      models.Sale            `json:"sale"`
	DishName  string                 `json:"dish_name"`
	Movements []models.StockMovement `json:"movements"`
}

// Record stores a sale at the sheet's current price and books one exit per
// recipe line. Either everything is written or nothing is.
func (r *Recorder) Record(tx *gorm.DB, in SaleInput) (*Receipt, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var receipt *Receipt
	err := tx.Transaction(func(tx *gorm.DB) error {
		var sheet models.TechnicalSheet
		if err := tx.Preload("Lines").First(&sheet, in.SheetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSheetNotFound
			}
			return err
		}
		if !sheet.Active {
			return ErrSheetInactive
		}

		if in.TableID != nil {
			var n int64
			if err := tx.Model(&models.Table{}).Where("id = ?", *in.TableID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrTableNotFound
			}
		}

		qty := decimal.NewFromInt(int64(in.Quantity))
		sale := models.Sale{
			TableID:    in.TableID,
			SheetID:    sheet.ID,
			Quantity:   in.Quantity,
			UnitPrice:  sheet.SalePrice,
			TotalPrice: sheet.SalePrice.Mul(qty),
			SoldAt:     r.now(),
			UserID:     in.UserID,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		receipt = &Receipt{Sale: sale, DishName: sheet.DishName, Movements: make([]models.StockMovement, 0, len(sheet.Lines))}
		note := fmt.Sprintf("Sale: %s (x%d)", sheet.DishName, in.Quantity)
		for _, line := range sheet.Lines {
			res, err := r.ledger.Apply(tx, stock.Movement{
				IngredientID: line.IngredientID,
				Kind:         models.MovementExit,
				Quantity:     line.Grams.Div(gramsPerKilo).Mul(qty),
				Source:       models.SourceSale,
				ReferenceID:  &sale.ID,
				UserID:       in.UserID,
				Note:         note,
			})
			if err != nil {
				return err
			}
			receipt.Movements = append(receipt.Movements, res.Movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

type Filter struct {
	From    string
	To      string
	TableID *uint
}

// Item is a sale with the labels the screens show next to it.
type Item struct {
	models.Sale
	DishName    string `json:"dish_name"`
	TableNumber *int   `json:"table_number"`
	UserName    string `json:"user_name"`
}

// List returns sales newest first. From and To are inclusive calendar days.
func (r *Recorder) List(tx *gorm.DB, f Filter) ([]Item, error) {
	q := tx.Preload("Sheet").Preload("Table").Preload("User")
	if f.From != "" {
		from, err := time.Parse(dateLayout, f.From)
		if err != nil {
			return nil, ErrInvalidPeriod
		}
		q = q.Where("sold_at >= ?", from)
	}
	if f.To != "" {
		to, err := time.Parse(dateLayout, f.To)
		if err != nil {
			return nil, ErrInvalidPeriod
		}
		q = q.Where("sold_at < ?", to.AddDate(0, 0, 1))
	}
	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}

	var list []models.Sale
	if err := q.Order("sold_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(list))
	for _, s := range list {
		item := Item{Sale: s}
		if s.Sheet != nil {
			item.DishName = s.Sheet.DishName
		}
		if s.Table != nil {
			n := s.Table.Number
			item.TableNumber = &n
		}
		if s.User != nil {
			item.UserName = s.User.Name
		}
		item.Sheet, item.Table, item.User = nil, nil, nil
		items = append(items, item)
	}
	return items, nil
}

type Totals struct {
	Count         int             `json:"total_sales"`
	Revenue       decimal.Decimal `json:"total_value"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

type DishLine struct {
	SheetID  uint            `json:"sheet_id"`
	DishName string          `json:"dish_name"`
	Category string          `json:"category"`
	Quantity int             `json:"total_quantity"`
	Revenue  decimal.Decimal `json:"total_value"`
}

type DayLine struct {
	Date    string          `json:"date"`
	Count   int             `json:"total_sales"`
	Revenue decimal.Decimal `json:"total_value"`
}

type CategoryLine struct {
	Category string          `json:"category"`
	Count    int             `json:"total_sales"`
	Revenue  decimal.Decimal `json:"total_value"`
}

type Summary struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Totals     Totals         `json:"totals"`
	ByDish     []DishLine     `json:"by_dish"`
	ByDay      []DayLine      `json:"by_day"`
	ByCategory []CategoryLine `json:"by_category"`
}

// Summarize aggregates the sales of [from, to] by dish, day and category.
// Days are UTC calendar dates.
func (r *Recorder) Summarize(tx *gorm.DB, from, to string) (*Summary, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, ErrInvalidPeriod
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil || end.Before(start) {
		return nil, ErrInvalidPeriod
	}

	var list []models.Sale
	if err := tx.Preload("Sheet").
		Where("sold_at >= ? AND sold_at < ?", start, end.AddDate(0, 0, 1)).
		Order("sold_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}

	s := &Summary{From: from, To: to, Totals: Totals{Revenue: decimal.Zero, AverageTicket: decimal.Zero}}
	dishes := map[uint]*DishLine{}
	days := map[string]*DayLine{}
	categories := map[string]*CategoryLine{}

	for _, sale := range list {
		s.Totals.Count++
		s.Totals.Revenue = s.Totals.Revenue.Add(sale.TotalPrice)

		var name, category string
		if sale.Sheet != nil {
			name, category = sale.Sheet.DishName, sale.Sheet.Category
		}

		d, ok := dishes[sale.SheetID]
		if !ok {
			d = &DishLine{SheetID: sale.SheetID, DishName: name, Category: category, Revenue: decimal.Zero}
			dishes[sale.SheetID] = d
		}
		d.Quantity += sale.Quantity
		d.Revenue = d.Revenue.Add(sale.TotalPrice)

		key := sale.SoldAt.UTC().Format(dateLayout)
		day, ok := days[key]
		if !ok {
			day = &DayLine{Date: key, Revenue: decimal.Zero}
			days[key] = day
		}
		day.Count++
		day.Revenue = day.Revenue.Add(sale.TotalPrice)

		c, ok := categories[category]
		if !ok {
			c = &CategoryLine{Category: category, Revenue: decimal.Zero}
			categories[category] = c
		}
		c.Count++
		c.Revenue = c.Revenue.Add(sale.TotalPrice)
	}

	if s.Totals.Count > 0 {
		s.Totals.AverageTicket = s.Totals.Revenue.Div(decimal.NewFromInt(int64(s.Totals.Count))).Round(2)
	}

	s.ByDish = make([]DishLine, 0, len(dishes))
	for _, d := range dishes {
		s.ByDish = append(s.ByDish, *d)
	}
	sort.Slice(s.ByDish, func(i, j int) bool {
		if c := s.ByDish[i].Revenue.Cmp(s.ByDish[j].Revenue); c != 0 {
			return c > 0
		}
		return s.ByDish[i].DishName < s.ByDish[j].DishName
	})

	s.ByDay = make([]DayLine, 0, len(days))
	for _, d := range days {
		s.ByDay = append(s.ByDay, *d)
	}
	sort.Slice(s.ByDay, func(i, j int) bool { return s.ByDay[i].Date < s.ByDay[j].Date })

	s.ByCategory = make([]CategoryLine, 0, len(categories))
	for _, c := range categories {
		s.ByCategory = append(s.ByCategory, *c)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Revenue.Cmp(s.ByCategory[j].Revenue); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})

	return s, nil
}
