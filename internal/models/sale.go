package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is immutable once created. UnitPrice is copied from the sheet so later
// price changes do not alter past sales.
type Sale struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	TableID    *uint           `gorm:"index" json:"table_id"`
	Table      *Table          `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	SheetID    uint            `gorm:"index;not null" json:"sheet_id"`
	Sheet      *TechnicalSheet `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"total_price"`
	SoldAt     time.Time       `gorm:"index;not null" json:"sold_at"`
	UserID     *uint           `gorm:"index" json:"user_id"`
	User       *User           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}
