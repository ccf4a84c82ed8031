// Package models holds the GORM records of every table.
package models

import "github.com/shopspring/decimal"

func init() {
	// money and quantities go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists the models in migration order.
func All() []any {
	return []any{
		&User{},
		&Ingredient{},
		&StockMovement{},
		&TechnicalSheet{},
		&SheetIngredient{},
		&InventoryRecord{},
		&Menu{},
		&MenuDish{},
		&Table{},
		&Sale{},
		&AuditLog{},
	}
}
