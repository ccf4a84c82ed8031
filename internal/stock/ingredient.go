package stock

import (
	"errors"
	"strings"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type IngredientInput struct {
	Name         string
	Unit         string
	UnitCost     decimal.Decimal
	InitialStock decimal.Decimal
	MinimumStock decimal.Decimal
	Supplier     string
}

type IngredientPatch struct {
	Name         *string
	Unit         *string
	UnitCost     *decimal.Decimal
	MinimumStock *decimal.Decimal
	Supplier     *string
	Active       *bool
}

type IngredientFilter struct {
	Active *bool
	Search string
}

// CreateIngredient inserts an ingredient with a zero balance and books the
// opening stock as an initial entry, so the balance is never written outside
// the ledger.
func (l *Ledger) CreateIngredient(tx *gorm.DB, in IngredientInput, userID *uint) (*models.Ingredient, *Result, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Name == "" || in.Unit == "" {
		return nil, nil, apperr.Validation("name and unit are required")
	}
	if in.UnitCost.IsNegative() || in.InitialStock.IsNegative() || in.MinimumStock.IsNegative() {
		return nil, nil, apperr.Validation("costs and quantities cannot be negative")
	}

	ing := models.Ingredient{
		Name:         in.Name,
		Unit:         in.Unit,
		UnitCost:     in.UnitCost,
		CurrentStock: decimal.Zero,
		MinimumStock: in.MinimumStock,
		Supplier:     strings.TrimSpace(in.Supplier),
		Active:       true,
	}
	if err := tx.Create(&ing).Error; err != nil {
		return nil, nil, err
	}

	var res *Result
	if in.InitialStock.IsPositive() {
		var err error
		res, err = l.Apply(tx, Movement{
			IngredientID: ing.ID,
			Kind:         models.MovementEntry,
			Quantity:     in.InitialStock,
			Source:       models.SourceInitial,
			UserID:       userID,
			Note:         "Initial stock",
		})
		if err != nil {
			return nil, nil, err
		}
		ing.CurrentStock = res.Current
	}

	return &ing, res, nil
}

// UpdateIngredient changes the descriptive fields. The balance only moves
// through Apply and Reconcile.
func (l *Ledger) UpdateIngredient(tx *gorm.DB, id uint, p IngredientPatch) (before, after *models.Ingredient, err error) {
	ing, err := l.GetIngredient(tx, id)
	if err != nil {
		return nil, nil, err
	}
	prev := *ing

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, nil, apperr.Validation("name cannot be empty")
		}
		ing.Name = name
	}
	if p.Unit != nil {
		unit := strings.TrimSpace(*p.Unit)
		if unit == "" {
			return nil, nil, apperr.Validation("unit cannot be empty")
		}
		ing.Unit = unit
	}
	if p.UnitCost != nil {
		if p.UnitCost.IsNegative() {
			return nil, nil, apperr.Validation("unit_cost cannot be negative")
		}
		ing.UnitCost = *p.UnitCost
	}
	if p.MinimumStock != nil {
		if p.MinimumStock.IsNegative() {
			return nil, nil, apperr.Validation("minimum_stock cannot be negative")
		}
		ing.MinimumStock = *p.MinimumStock
	}
	if p.Supplier != nil {
		ing.Supplier = strings.TrimSpace(*p.Supplier)
	}
	if p.Active != nil {
		ing.Active = *p.Active
	}

	if err := tx.Model(ing).Select("name", "unit", "unit_cost", "minimum_stock", "supplier", "active").
		Updates(ing).Error; err != nil {
		return nil, nil, err
	}
	return &prev, ing, nil
}

// DeactivateIngredient hides an ingredient. Rows are never deleted because
// movements, sheets and inventories reference them.
func (l *Ledger) DeactivateIngredient(tx *gorm.DB, id uint) (*models.Ingredient, error) {
	ing, err := l.GetIngredient(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(ing).Update("active", false).Error; err != nil {
		return nil, err
	}
	ing.Active = false
	return ing, nil
}

func (l *Ledger) GetIngredient(tx *gorm.DB, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := tx.First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}
	return &ing, nil
}

// ListIngredients returns ingredients ordered by name. Active defaults to true.
func (l *Ledger) ListIngredients(tx *gorm.DB, f IngredientFilter) ([]models.Ingredient, error) {
	active := true
	if f.Active != nil {
		active = *f.Active
	}

	q := tx.Where("active = ?", active)
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var list []models.Ingredient
	if err := q.Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// LowStock returns active ingredients at or below their minimum, lowest first.
func (l *Ledger) LowStock(tx *gorm.DB) ([]models.Ingredient, error) {
	var list []models.Ingredient
	if err := tx.Where("active = ? AND current_stock <= minimum_stock", true).
		Order("current_stock ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
