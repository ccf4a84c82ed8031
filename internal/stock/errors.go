package stock

import (
	"fmt"

	"silvess-backend/internal/apperr"

	"github.com/shopspring/decimal"
)

var (
	ErrIngredientNotFound = apperr.NotFound("ingredient not found")
	ErrInvalidQuantity    = apperr.Validation("quantity must be greater than zero")
	ErrInvalidKind        = apperr.Validation("kind must be entry or exit")
	ErrNegativeTarget     = apperr.Validation("stock cannot be set below zero")
	ErrInsufficientStock  = apperr.Rule("insufficient stock")
)

// InsufficientStockError reports an exit larger than the current balance.
type InsufficientStockError struct {
	IngredientID   uint
	IngredientName string
	Available      decimal.Decimal
	Requested      decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.IngredientName, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"ingredient_id": e.IngredientID,
		"available":     e.Available,
		"requested":     e.Requested,
	}
}
