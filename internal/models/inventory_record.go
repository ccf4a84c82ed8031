package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord is the snapshot of one ingredient on one inventory day.
// PhysicalQuantity and Difference stay NULL until the item is counted.
type InventoryRecord struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	InventoryDate    string              `gorm:"size:10;not null;uniqueIndex:idx_inventory_date_ingredient" json:"inventory_date"` // YYYY-MM-DD
	IngredientID     uint                `gorm:"not null;uniqueIndex:idx_inventory_date_ingredient" json:"ingredient_id"`
	Ingredient       *Ingredient         `gorm:"constraint:OnDelete:RESTRICT" json:"ingredient,omitempty"`
	SystemQuantity   decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"system_quantity"`
	PhysicalQuantity decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"physical_quantity"`
	Difference       decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"difference"`
	Notes            string              `gorm:"size:255" json:"notes"`
	Editable         bool                `gorm:"not null" json:"editable"`
	UserID           *uint               `json:"user_id"`
	User             *User               `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (r InventoryRecord) Counted() bool {
	return r.PhysicalQuantity.Valid
}
