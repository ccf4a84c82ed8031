package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

func (k MovementKind) Valid() bool {
	return k == MovementEntry || k == MovementExit
}

type MovementSource string

const (
	SourceInitial   MovementSource = "initial"
	SourceManual    MovementSource = "manual"
	SourceSale      MovementSource = "sale"
	SourceInventory MovementSource = "inventory"
)

// StockMovement is one append-only ledger line. Rows are only ever inserted.
type StockMovement struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	IngredientID    uint            `gorm:"index;not null" json:"ingredient_id"`
	Ingredient      *Ingredient     `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Kind            MovementKind    `gorm:"size:10;not null" json:"kind"`
	Quantity        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"quantity"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"previous_balance"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"new_balance"`
	Source          MovementSource  `gorm:"size:20;not null;index" json:"source"`
	ReferenceID     *uint           `json:"reference_id"` // sale or inventory record id
	UserID          *uint           `gorm:"index" json:"user_id"`
	User            *User           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Note            string          `gorm:"size:255" json:"note"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

// Signed returns the quantity with the sign of its effect on the balance.
func (m StockMovement) Signed() decimal.Decimal {
	if m.Kind == MovementExit {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
