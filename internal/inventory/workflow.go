// Package inventory runs the periodic stock count: snapshot the system
// balances for a date, record the physical counts, optionally reconcile the
// ledger, then freeze the date.
package inventory

import (
	"errors"
	"sort"
	"strings"
	"time"

	"silvess-backend/internal/models"
	"silvess-backend/internal/stock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

var gramsPerKilo = decimal.NewFromInt(1000)

type Workflow struct {
	ledger *stock.Ledger
}

func NewWorkflow(ledger *stock.Ledger) *Workflow {
	return &Workflow{ledger: ledger}
}

type GenerateResult struct {
	Date    string                   `json:"inventory_date"`
	Created int                      `json:"total_items"`
	Items   []models.InventoryRecord `json:"items"`
}

type CountInput struct {
	Physical    decimal.Decimal
	Notes       *string
	AdjustStock bool
	UserID      *uint
}

type CountResult struct {
	Record     models.InventoryRecord `json:"record"`
	Adjusted   bool                   `json:"stock_adjusted"`
	Adjustment *stock.Result          `json:"-"`
}

type Filter struct {
	From         string
	To           string
	IngredientID *uint
}

// Item is an inventory record with the names the screens show next to it.
type Item struct {
	models.InventoryRecord
	IngredientName string `json:"ingredient_name"`
	Unit           string `json:"unit"`
	UserName       string `json:"user_name"`
}

type ReportItem struct {
	models.InventoryRecord
	IngredientName  string              `json:"ingredient_name"`
	Unit            string              `json:"unit"`
	UnitCost        decimal.Decimal     `json:"unit_cost"`
	ValueDifference decimal.NullDecimal `json:"value_difference"`
}

type Report struct {
	Date                 string          `json:"inventory_date"`
	TotalItems           int             `json:"total_items"`
	ItemsWithDifference  int             `json:"items_with_difference"`
	TotalValueDifference decimal.Decimal `json:"total_value_difference"`
	Items                []ReportItem    `json:"items"`
}

// Today is the default inventory date.
func Today() string {
	return time.Now().Format(dateLayout)
}

func checkDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Generate snapshots the balance of every active ingredient that has no row
// for date yet. Running it again for the same date only adds ingredients
// created since.
func (w *Workflow) Generate(tx *gorm.DB, date string, userID *uint) (*GenerateResult, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}

	var ingredients []models.Ingredient
	if err := tx.Where("active = ?", true).Order("name ASC").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	if len(ingredients) == 0 {
		return nil, ErrNoActiveIngredients
	}

	var existing []uint
	if err := tx.Model(&models.InventoryRecord{}).
		Where("inventory_date = ?", date).
		Pluck("ingredient_id", &existing).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}

	res := &GenerateResult{Date: date, Items: []models.InventoryRecord{}}
	for _, ing := range ingredients {
		if seen[ing.ID] {
			continue
		}
		rec := models.InventoryRecord{
			InventoryDate:  date,
			IngredientID:   ing.ID,
			SystemQuantity: ing.CurrentStock,
			Editable:       true,
			UserID:         userID,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, err
		}
		res.Items = append(res.Items, rec)
	}
	res.Created = len(res.Items)

	return res, nil
}

// RecordCount stores the physical quantity of one record. With AdjustStock
// and a non-zero difference the ingredient balance is forced to the counted
// quantity through the ledger.
func (w *Workflow) RecordCount(tx *gorm.DB, id uint, in CountInput) (*CountResult, error) {
	if in.Physical.IsNegative() {
		return nil, ErrNegativeCount
	}

	var rec models.InventoryRecord
	if err := tx.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if !rec.Editable {
		return nil, ErrNotEditable
	}

	diff := in.Physical.Sub(rec.SystemQuantity)
	rec.PhysicalQuantity = decimal.NewNullDecimal(in.Physical)
	rec.Difference = decimal.NewNullDecimal(diff)
	if in.Notes != nil {
		rec.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.UserID != nil {
		rec.UserID = in.UserID
	}

	if err := tx.Model(&rec).
		Select("physical_quantity", "difference", "notes", "user_id").
		Updates(&rec).Error; err != nil {
		return nil, err
	}

	out := &CountResult{Record: rec}
	if in.AdjustStock && !diff.IsZero() {
		adj, err := w.ledger.Reconcile(tx, rec.IngredientID, in.Physical, stock.Movement{
			Source:      models.SourceInventory,
			ReferenceID: &rec.ID,
			UserID:      in.UserID,
			Note:        "Inventory adjustment - " + rec.Notes,
		})
		if err != nil {
			return nil, err
		}
		// Stock may already sit at the counted quantity, in which case the
		// ledger writes nothing.
		if adj.Movement.ID != 0 {
			out.Adjusted = true
			out.Adjustment = adj
		}
	}

	return out, nil
}

// Close freezes every record of date. It fails while any record is uncounted.
func (w *Workflow) Close(tx *gorm.DB, date string) (int64, error) {
	if err := checkDate(date); err != nil {
		return 0, err
	}

	var total int64
	if err := tx.Model(&models.InventoryRecord{}).Where("inventory_date = ?", date).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, ErrDateNotFound
	}

	var pending int64
	if err := tx.Model(&models.InventoryRecord{}).
		Where("inventory_date = ? AND physical_quantity IS NULL", date).
		Count(&pending).Error; err != nil {
		return 0, err
	}
	if pending > 0 {
		return 0, &PendingCountsError{Date: date, Pending: pending}
	}

	res := tx.Model(&models.InventoryRecord{}).Where("inventory_date = ?", date).Update("editable", false)
	return res.RowsAffected, res.Error
}

// Reopen makes every record of date editable again. Counts are kept.
func (w *Workflow) Reopen(tx *gorm.DB, date string) (int64, error) {
	if err := checkDate(date); err != nil {
		return 0, err
	}

	res := tx.Model(&models.InventoryRecord{}).Where("inventory_date = ?", date).Update("editable", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrDateNotFound
	}
	return res.RowsAffected, nil
}

// Report values the differences of date. Rows are sorted by the size of the
// difference, uncounted rows last.
func (w *Workflow) Report(tx *gorm.DB, date string) (*Report, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}

	var records []models.InventoryRecord
	if err := tx.Preload("Ingredient").Where("inventory_date = ?", date).Find(&records).Error; err != nil {
		return nil, err
	}

	r := &Report{Date: date, TotalValueDifference: decimal.Zero, Items: make([]ReportItem, 0, len(records))}
	for _, rec := range records {
		item := ReportItem{InventoryRecord: rec}
		if rec.Ingredient != nil {
			item.IngredientName = rec.Ingredient.Name
			item.Unit = rec.Ingredient.Unit
			item.UnitCost = rec.Ingredient.UnitCost
		}
		item.Ingredient = nil

		if rec.Difference.Valid {
			value := rec.Difference.Decimal.Mul(item.UnitCost).Div(gramsPerKilo).Round(4)
			item.ValueDifference = decimal.NewNullDecimal(value)
			r.TotalValueDifference = r.TotalValueDifference.Add(value)
			if !rec.Difference.Decimal.IsZero() {
				r.ItemsWithDifference++
			}
		}
		r.Items = append(r.Items, item)
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i].Difference, r.Items[j].Difference
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid {
			if c := a.Decimal.Abs().Cmp(b.Decimal.Abs()); c != 0 {
				return c > 0
			}
		}
		return r.Items[i].IngredientName < r.Items[j].IngredientName
	})
	r.TotalItems = len(r.Items)

	return r, nil
}

// List returns records newest date first, then by ingredient name.
func (w *Workflow) List(tx *gorm.DB, f Filter) ([]Item, error) {
	q := tx.Preload("Ingredient").Preload("User")
	if f.From != "" {
		if err := checkDate(f.From); err != nil {
			return nil, err
		}
		q = q.Where("inventory_date >= ?", f.From)
	}
	if f.To != "" {
		if err := checkDate(f.To); err != nil {
			return nil, err
		}
		q = q.Where("inventory_date <= ?", f.To)
	}
	if f.IngredientID != nil {
		q = q.Where("ingredient_id = ?", *f.IngredientID)
	}

	var records []models.InventoryRecord
	if err := q.Order("inventory_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		item := Item{InventoryRecord: rec}
		if rec.Ingredient != nil {
			item.IngredientName = rec.Ingredient.Name
			item.Unit = rec.Ingredient.Unit
		}
		if rec.User != nil {
			item.UserName = rec.User.Name
		}
		item.Ingredient = nil
		item.User = nil
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].InventoryDate != items[j].InventoryDate {
			return items[i].InventoryDate > items[j].InventoryDate
		}
		return items[i].IngredientName < items[j].IngredientName
	})
	return items, nil
}
