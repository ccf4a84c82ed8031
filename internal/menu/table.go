package menu

import (
	"errors"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableInput struct {
	Number int
	MenuID *uint
	Active *bool
}

// TablePatch changes only the non-nil fields. The menu can be switched but
// not cleared.
type TablePatch struct {
	MenuID *uint
	Active *bool
}

// TableItem is a table as listed, with the name and date of its menu.
type TableItem struct {
	models.Table
	MenuName *string `json:"menu_name"`
	MenuDate *string `json:"menu_date"`
}

// TableCode is the payload served for printing a table's code.
type TableCode struct {
	TableNumber int    `json:"table_number"`
	MenuID      uint   `json:"menu_id"`
	QRCode      string `json:"qrcode_url"`
}

// Tables manages restaurant tables and the codes that link them to a menu.
type Tables struct {
	frontendURL string
}

func NewTables(frontendURL string) *Tables {
	return &Tables{frontendURL: frontendURL}
}

// List returns the active tables by number.
func (t *Tables) List(tx *gorm.DB) ([]TableItem, error) {
	var list []models.Table
	if err := tx.Preload("Menu").Where("active = ?", true).Order("number ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	items := make([]TableItem, 0, len(list))
	for _, tb := range list {
		item := TableItem{Table: tb}
		if tb.Menu != nil {
			name, date := tb.Menu.Name, tb.Menu.Date
			item.MenuName, item.MenuDate = &name, &date
		}
		item.Menu = nil
		items = append(items, item)
	}
	return items, nil
}

func (t *Tables) Get(tx *gorm.DB, id uint) (*models.Table, error) {
	var tb models.Table
	if err := tx.First(&tb, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &tb, nil
}

// Create adds a table. When a menu is given the code is generated at once.
func (t *Tables) Create(tx *gorm.DB, in TableInput) (*models.Table, error) {
	if in.Number <= 0 {
		return nil, apperr.Validation("number must be positive")
	}

	var taken int64
	if err := tx.Model(&models.Table{}).Where("number = ?", in.Number).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrTableExists
	}

	tb := models.Table{
		Number: in.Number,
		MenuID: in.MenuID,
		Active: in.Active == nil || *in.Active,
	}
	if in.MenuID != nil {
		if err := menuExists(tx, *in.MenuID); err != nil {
			return nil, err
		}
		code, err := TableQR(t.frontendURL, tb.Number, *in.MenuID)
		if err != nil {
			return nil, err
		}
		tb.QRCode = code
	}

	if err := tx.Omit(clause.Associations).Create(&tb).Error; err != nil {
		return nil, err
	}
	return &tb, nil
}

// Update applies p and returns the table before and after. The code is
// regenerated when the menu changes.
func (t *Tables) Update(tx *gorm.DB, id uint, p TablePatch) (before, after *models.Table, err error) {
	before, err = t.Get(tx, id)
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]any{}
	if p.Active != nil {
		updates["active"] = *p.Active
	}
	if p.MenuID != nil && (before.MenuID == nil || *before.MenuID != *p.MenuID) {
		if err := menuExists(tx, *p.MenuID); err != nil {
			return nil, nil, err
		}
		code, err := TableQR(t.frontendURL, before.Number, *p.MenuID)
		if err != nil {
			return nil, nil, err
		}
		updates["menu_id"] = *p.MenuID
		updates["qr_code"] = code
	}

	if len(updates) > 0 {
		if err := tx.Model(&models.Table{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
	}

	after, err = t.Get(tx, id)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Code returns the table's code, generating and storing it if the table
// has a menu but no code yet.
func (t *Tables) Code(tx *gorm.DB, id uint) (*TableCode, error) {
	tb, err := t.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if tb.MenuID == nil {
		return nil, ErrNoMenu
	}

	if tb.QRCode == "" {
		code, err := TableQR(t.frontendURL, tb.Number, *tb.MenuID)
		if err != nil {
			return nil, err
		}
		if err := tx.Model(&models.Table{}).Where("id = ?", id).Update("qr_code", code).Error; err != nil {
			return nil, err
		}
		tb.QRCode = code
	}

	return &TableCode{TableNumber: tb.Number, MenuID: *tb.MenuID, QRCode: tb.QRCode}, nil
}

func menuExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Menu{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrMenuNotFound
	}
	return nil
}
