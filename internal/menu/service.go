package menu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

var (
	ErrMenuNotFound  = apperr.NotFound("menu not found")
	ErrDishNotFound  = apperr.NotFound("dish not found in menu")
	ErrTableNotFound = apperr.NotFound("table not found")
	ErrTableExists   = apperr.Rule("table number already exists")
	ErrNoMenu        = apperr.Validation("table has no menu")
)

// UnknownSheetError reports a dish that points at a missing sheet.
type UnknownSheetError struct {
	SheetID uint
}

func (e *UnknownSheetError) Error() string {
	return fmt.Sprintf("technical sheet %d not found", e.SheetID)
}

func (e *UnknownSheetError) Unwrap() error { return apperr.ErrValidation }

func (e *UnknownSheetError) Details() map[string]any {
	return map[string]any{"sheet_id": e.SheetID}
}

// DishInput is one menu entry. Position defaults to the index in the list
// and Available to true.
type DishInput struct {
	SheetID   uint  `json:"sheet_id" validate:"required"`
	Available *bool `json:"available"`
	Position  *int  `json:"position" validate:"omitempty,gte=0"`
}

type Input struct {
	Date        string
	Name        string
	Description string
	Active      *bool
	Dishes      []DishInput
}

// Patch changes only the non-nil fields. A non-nil Dishes replaces the
// whole dish list.
type Patch struct {
	Date        *string
	Name        *string
	Description *string
	Active      *bool
	Dishes      *[]DishInput
}

type Filter struct {
	Active *bool
	Date   string
}

func Create(tx *gorm.DB, in Input) (*models.Menu, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Date == "" {
		return nil, apperr.Validation("name and date are required")
	}
	if err := checkDate(in.Date); err != nil {
		return nil, err
	}

	m := models.Menu{
		Date:        in.Date,
		Name:        in.Name,
		Description: in.Description,
		Active:      in.Active == nil || *in.Active,
	}
	if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
		return nil, err
	}
	if err := replaceDishes(tx, m.ID, in.Dishes); err != nil {
		return nil, err
	}
	return Get(tx, m.ID)
}

// Get loads a menu with its dishes in display order.
func Get(tx *gorm.DB, id uint) (*models.Menu, error) {
	var m models.Menu
	if err := tx.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, err
	}

	if err := tx.Preload("Sheet").
		Joins("JOIN technical_sheets ON technical_sheets.id = menu_dishes.sheet_id").
		Where("menu_dishes.menu_id = ?", id).
		Order("menu_dishes.position ASC, technical_sheets.category ASC, technical_sheets.dish_name ASC").
		Find(&m.Dishes).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns menus newest date first. Without a filter every menu is
// returned, active or not.
func List(tx *gorm.DB, f Filter) ([]models.Menu, error) {
	q := tx.Model(&models.Menu{})
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}

	var list []models.Menu
	if err := q.Order("date DESC, created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Update applies p and returns the menu before and after the change.
func Update(tx *gorm.DB, id uint, p Patch) (before, after *models.Menu, err error) {
	before, err = Get(tx, id)
	if err != nil {
		return nil, nil, err
	}

	updates := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, nil, apperr.Validation("name cannot be empty")
		}
		updates["name"] = name
	}
	if p.Date != nil {
		if err := checkDate(*p.Date); err != nil {
			return nil, nil, err
		}
		updates["date"] = *p.Date
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.Active != nil {
		updates["active"] = *p.Active
	}

	if len(updates) > 0 {
		if err := tx.Model(&models.Menu{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, nil, err
		}
	}
	if p.Dishes != nil {
		if err := tx.Where("menu_id = ?", id).Delete(&models.MenuDish{}).Error; err != nil {
			return nil, nil, err
		}
		if err := replaceDishes(tx, id, *p.Dishes); err != nil {
			return nil, nil, err
		}
	}

	after, err = Get(tx, id)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Deactivate hides a menu; its dishes and tables keep pointing at it.
func Deactivate(tx *gorm.DB, id uint) (*models.Menu, error) {
	m, err := Get(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Menu{}).Where("id = ?", id).Update("active", false).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// SetAvailability flips one dish of a menu on or off.
func SetAvailability(tx *gorm.DB, menuID, dishID uint, available bool) error {
	res := tx.Model(&models.MenuDish{}).
		Where("id = ? AND menu_id = ?", dishID, menuID).
		Update("available", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDishNotFound
	}
	return nil
}

func replaceDishes(tx *gorm.DB, menuID uint, dishes []DishInput) error {
	if len(dishes) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(dishes))
	for _, d := range dishes {
		ids = append(ids, d.SheetID)
	}
	var found []uint
	if err := tx.Model(&models.TechnicalSheet{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}

	rows := make([]models.MenuDish, 0, len(dishes))
	for i, d := range dishes {
		if !known[d.SheetID] {
			return &UnknownSheetError{SheetID: d.SheetID}
		}
		row := models.MenuDish{
			MenuID:    menuID,
			SheetID:   d.SheetID,
			Available: d.Available == nil || *d.Available,
			Position:  i,
		}
		if d.Position != nil {
			row.Position = *d.Position
		}
		rows = append(rows, row)
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

func checkDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	return nil
}
