package menu

import (
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
)

// PublicDish is what a guest sees of a menu entry: no cost, margin or
// recipe.
type PublicDish struct {
	ID          uint            `json:"id"`
	SheetID     uint            `json:"sheet_id"`
	DishName    string          `json:"dish_name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	PrepMinutes int             `json:"prep_minutes"`
	Portions    int             `json:"portions"`
	Available   bool            `json:"available"`
	Position    int             `json:"position"`
}

type PublicMenu struct {
	ID          uint         `json:"id"`
	Date        string       `json:"date"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Active      bool         `json:"active"`
	Dishes      []PublicDish `json:"dishes"`
}

// Public strips a loaded menu down to the columns guests may read.
func Public(m *models.Menu) PublicMenu {
	out := PublicMenu{
		ID:          m.ID,
		Date:        m.Date,
		Name:        m.Name,
		Description: m.Description,
		Active:      m.Active,
		Dishes:      make([]PublicDish, 0, len(m.Dishes)),
	}
	for _, d := range m.Dishes {
		dish := PublicDish{ID: d.ID, SheetID: d.SheetID, Available: d.Available, Position: d.Position}
		if d.Sheet != nil {
			dish.DishName = d.Sheet.DishName
			dish.Description = d.Sheet.Description
			dish.Category = d.Sheet.Category
			dish.SalePrice = d.Sheet.SalePrice
			dish.PrepMinutes = d.Sheet.PrepMinutes
			dish.Portions = d.Sheet.Portions
		}
		out.Dishes = append(out.Dishes, dish)
	}
	return out
}

// PublicList is Public for menus listed without their dishes.
func PublicList(list []models.Menu) []PublicMenu {
	out := make([]PublicMenu, 0, len(list))
	for i := range list {
		out = append(out, Public(&list[i]))
	}
	return out
}
