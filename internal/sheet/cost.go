// Package sheet computes recipe costs and manages technical sheets.
package sheet

import (
	"fmt"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrUnknownIngredient = apperr.Validation("unknown ingredient")
	ErrNoLines           = apperr.Validation("add at least one ingredient")
	ErrInvalidGrams      = apperr.Validation("grams must be greater than zero")

	gramsPerKilo = decimal.NewFromInt(1000)
	hundred      = decimal.NewFromInt(100)
)

// UnknownIngredientError names the ingredient a line refers to that is
// missing or inactive.
type UnknownIngredientError struct {
	IngredientID uint
	Inactive     bool
}

func (e *UnknownIngredientError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("ingredient %d is inactive", e.IngredientID)
	}
	return fmt.Sprintf("ingredient %d not found", e.IngredientID)
}

func (e *UnknownIngredientError) Unwrap() error { return ErrUnknownIngredient }

func (e *UnknownIngredientError) Details() map[string]any {
	return map[string]any{"ingredient_id": e.IngredientID}
}

type LineInput struct {
	IngredientID uint            `json:"ingredient_id" validate:"required"`
	Grams        decimal.Decimal `json:"grams" validate:"gt=0"`
}

type LineCost struct {
	IngredientID   uint            `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Grams          decimal.Decimal `json:"grams"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	PartialCost    decimal.Decimal `json:"partial_cost"`
}

// PartialCost prices grams of an ingredient whose unit cost is per kilogram.
func PartialCost(grams, unitCost decimal.Decimal) decimal.Decimal {
	return grams.Div(gramsPerKilo).Mul(unitCost).Round(4)
}

// ComputeMargin returns the profit over cost in percent, rounded to two
// places. A zero cost yields zero.
func ComputeMargin(cost, price decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(cost).Div(cost).Mul(hundred).Round(2)
}

// ComputeSheetCost prices every line against the current unit costs.
// Inactive ingredients are rejected like missing ones.
func ComputeSheetCost(tx *gorm.DB, lines []LineInput) (decimal.Decimal, []LineCost, error) {
	if len(lines) == 0 {
		return decimal.Zero, nil, ErrNoLines
	}

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		if !l.Grams.IsPositive() {
			return decimal.Zero, nil, ErrInvalidGrams
		}
		ids = append(ids, l.IngredientID)
	}

	var found []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return decimal.Zero, nil, err
	}
	byID := make(map[uint]models.Ingredient, len(found))
	for _, ing := range found {
		byID[ing.ID] = ing
	}

	total := decimal.Zero
	costs := make([]LineCost, 0, len(lines))
	for _, l := range lines {
		ing, ok := byID[l.IngredientID]
		if !ok {
			return decimal.Zero, nil, &UnknownIngredientError{IngredientID: l.IngredientID}
		}
		if !ing.Active {
			return decimal.Zero, nil, &UnknownIngredientError{IngredientID: l.IngredientID, Inactive: true}
		}

		partial := PartialCost(l.Grams, ing.UnitCost)
		total = total.Add(partial)
		costs = append(costs, LineCost{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			Grams:          l.Grams,
			UnitCost:       ing.UnitCost,
			PartialCost:    partial,
		})
	}

	return total, costs, nil
}
