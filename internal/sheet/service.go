package sheet

import (
	"errors"
	"strings"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSheetNotFound = apperr.NotFound("technical sheet not found")

type Input struct {
	DishName       string
	Category       string
	Description    string
	Portions       int
	PrepMinutes    int
	Instructions   string
	ShelfLifeHours int
	SalePrice      decimal.Decimal
	Lines          []LineInput
}

// Patch changes only the non-nil fields. A non-nil Lines replaces the whole
// ingredient list and recomputes the cost.
type Patch struct {
	DishName       *string
	Category       *string
	Description    *string
	Portions       *int
	PrepMinutes    *int
	Instructions   *string
	ShelfLifeHours *int
	SalePrice      *decimal.Decimal
	Active         *bool
	Lines          *[]LineInput
}

type Filter struct {
	Active   *bool
	Category string
	Search   string
}

type Preview struct {
	TotalCost     decimal.Decimal `json:"total_cost"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	Lines         []LineCost      `json:"ingredients"`
}

func Create(tx *gorm.DB, in Input) (*models.TechnicalSheet, error) {
	in.DishName = strings.TrimSpace(in.DishName)
	if in.DishName == "" {
		return nil, apperr.Validation("dish_name is required")
	}
	if in.SalePrice.IsNegative() {
		return nil, apperr.Validation("sale_price cannot be negative")
	}
	if in.Portions <= 0 {
		in.Portions = 1
	}

	total, costs, err := ComputeSheetCost(tx, in.Lines)
	if err != nil {
		return nil, err
	}

	s := models.TechnicalSheet{
		DishName:       in.DishName,
		Category:       strings.TrimSpace(in.Category),
		Description:    in.Description,
		Portions:       in.Portions,
		PrepMinutes:    in.PrepMinutes,
		Instructions:   in.Instructions,
		ShelfLifeHours: in.ShelfLifeHours,
		TotalCost:      total,
		SalePrice:      in.SalePrice,
		MarginPercent:  ComputeMargin(total, in.SalePrice),
		Active:         true,
	}
	if err := tx.Omit(clause.Associations).Create(&s).Error; err != nil {
		return nil, err
	}
	if err := replaceLines(tx, s.ID, costs); err != nil {
		return nil, err
	}

	return Get(tx, s.ID)
}

// Get loads a sheet with its lines ordered by ingredient name.
func Get(tx *gorm.DB, id uint) (*models.TechnicalSheet, error) {
	var s models.TechnicalSheet
	if err := tx.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSheetNotFound
		}
		return nil, err
	}

	if err := tx.Preload("Ingredient").
		Joins("JOIN ingredients ON ingredients.id = sheet_ingredients.ingredient_id").
		Where("sheet_ingredients.sheet_id = ?", id).
		Order("ingredients.name ASC").
		Find(&s.Lines).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func List(tx *gorm.DB, f Filter) ([]models.TechnicalSheet, error) {
	active := true
	if f.Active != nil {
		active = *f.Active
	}

	q := tx.Where("active = ?", active)
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("category = ?", c)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(dish_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var list []models.TechnicalSheet
	if err := q.Order("dish_name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Update applies p and returns the sheet before and after the change. The
// margin is re-derived from the stored cost whenever the price or the lines
// change; scalar edits alone never reprice the ingredients.
func Update(tx *gorm.DB, id uint, p Patch) (before, after *models.TechnicalSheet, err error) {
	before, err = Get(tx, id)
	if err != nil {
		return nil, nil, err
	}
	s := *before
	s.Lines = nil

	if p.DishName != nil {
		name := strings.TrimSpace(*p.DishName)
		if name == "" {
			return nil, nil, apperr.Validation("dish_name cannot be empty")
		}
		s.DishName = name
	}
	if p.Category != nil {
		s.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Portions != nil {
		if *p.Portions <= 0 {
			return nil, nil, apperr.Validation("portions must be positive")
		}
		s.Portions = *p.Portions
	}
	if p.PrepMinutes != nil {
		s.PrepMinutes = *p.PrepMinutes
	}
	if p.Instructions != nil {
		s.Instructions = *p.Instructions
	}
	if p.ShelfLifeHours != nil {
		s.ShelfLifeHours = *p.ShelfLifeHours
	}
	if p.Active != nil {
		s.Active = *p.Active
	}

	reprice := false
	if p.SalePrice != nil {
		if p.SalePrice.IsNegative() {
			return nil, nil, apperr.Validation("sale_price cannot be negative")
		}
		s.SalePrice = *p.SalePrice
		reprice = true
	}
	if p.Lines != nil {
		total, costs, err := ComputeSheetCost(tx, *p.Lines)
		if err != nil {
			return nil, nil, err
		}
		if err := replaceLines(tx, id, costs); err != nil {
			return nil, nil, err
		}
		s.TotalCost = total
		reprice = true
	}
	if reprice {
		s.MarginPercent = ComputeMargin(s.TotalCost, s.SalePrice)
	}

	if err := tx.Model(&models.TechnicalSheet{ID: id}).
		Select("dish_name", "category", "description", "portions", "prep_minutes", "instructions",
			"shelf_life_hours", "total_cost", "sale_price", "margin_percent", "active").
		Updates(&s).Error; err != nil {
		return nil, nil, err
	}

	after, err = Get(tx, id)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func Deactivate(tx *gorm.DB, id uint) (*models.TechnicalSheet, error) {
	var s models.TechnicalSheet
	if err := tx.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSheetNotFound
		}
		return nil, err
	}
	if err := tx.Model(&s).Update("active", false).Error; err != nil {
		return nil, err
	}
	s.Active = false
	return &s, nil
}

// Categories lists the distinct non-empty categories of active sheets.
func Categories(tx *gorm.DB) ([]string, error) {
	categories := []string{}
	if err := tx.Model(&models.TechnicalSheet{}).
		Where("active = ? AND category IS NOT NULL AND category <> ''", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CostPreview prices a line set and a sale price without saving anything.
func CostPreview(tx *gorm.DB, lines []LineInput, price decimal.Decimal) (*Preview, error) {
	total, costs, err := ComputeSheetCost(tx, lines)
	if err != nil {
		return nil, err
	}
	return &Preview{
		TotalCost:     total,
		SalePrice:     price,
		MarginPercent: ComputeMargin(total, price),
		Lines:         costs,
	}, nil
}

// replaceLines drops the sheet's lines and inserts the priced ones.
func replaceLines(tx *gorm.DB, sheetID uint, costs []LineCost) error {
	if err := tx.Where("sheet_id = ?", sheetID).Delete(&models.SheetIngredient{}).Error; err != nil {
		return err
	}

	lines := make([]models.SheetIngredient, 0, len(costs))
	for _, c := range costs {
		lines = append(lines, models.SheetIngredient{
			SheetID:      sheetID,
			IngredientID: c.IngredientID,
			Grams:        c.Grams,
			PartialCost:  c.PartialCost,
		})
	}
	return tx.Create(&lines).Error
}
