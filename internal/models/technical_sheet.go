package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TechnicalSheet is a dish's recipe and cost sheet. TotalCost and
// MarginPercent are derived from the ingredient lines and SalePrice.
type TechnicalSheet struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	DishName       string            `gorm:"size:150;not null;index" json:"dish_name"`
	Category       string            `gorm:"size:80;index" json:"category"`
	Description    string            `gorm:"type:text" json:"description"`
	Portions       int               `gorm:"not null" json:"portions"`
	PrepMinutes    int               `json:"prep_minutes"`
	Instructions   string            `gorm:"type:text" json:"instructions"`
	ShelfLifeHours int               `json:"shelf_life_hours"`
	TotalCost      decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"total_cost"`
	SalePrice      decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"sale_price"`
	MarginPercent  decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"margin_percent"`
	Active         bool              `gorm:"not null;index" json:"active"`
	Lines          []SheetIngredient `gorm:"foreignKey:SheetID;constraint:OnDelete:CASCADE" json:"ingredients,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type SheetIngredient struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SheetID      uint            `gorm:"index;not null" json:"sheet_id"`
	IngredientID uint            `gorm:"index;not null" json:"ingredient_id"`
	Ingredient   *Ingredient     `gorm:"constraint:OnDelete:RESTRICT" json:"ingredient,omitempty"`
	Grams        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"grams"`
	PartialCost  decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"partial_cost"`
}
