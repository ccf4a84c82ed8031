package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient is a stocked raw material. UnitCost is the price of one
// kilogram (or litre); CurrentStock is kept in the same unit and always
// equals the signed sum of the ingredient's stock movements.
type Ingredient struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null;index" json:"name"`
	Unit         string          `gorm:"size:20;not null" json:"unit"` // kg, l, un ...
	UnitCost     decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`
	CurrentStock decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"current_stock"`
	MinimumStock decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"minimum_stock"`
	Supplier     string          `gorm:"size:150" json:"supplier"`
	Active       bool            `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsLow reports whether the stock reached the minimum threshold.
func (i Ingredient) IsLow() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinimumStock)
}
