package sheet

import (
	"fmt"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSheetRequest struct {
	DishName       string          `json:"dish_name" validate:"required,max=150"`
	Category       string          `json:"category" validate:"max=80"`
	Description    string          `json:"description"`
	Portions       int             `json:"portions" validate:"gte=0"`
	PrepMinutes    int             `json:"prep_minutes" validate:"gte=0"`
	Instructions   string          `json:"instructions"`
	ShelfLifeHours int             `json:"shelf_life_hours" validate:"gte=0"`
	SalePrice      decimal.Decimal `json:"sale_price" validate:"gte=0"`
	Ingredients    []LineInput     `json:"ingredients" validate:"required,min=1,dive"`
}

type UpdateSheetRequest struct {
	DishName       *string          `json:"dish_name" validate:"omitempty,max=150"`
	Category       *string          `json:"category" validate:"omitempty,max=80"`
	Description    *string          `json:"description"`
	Portions       *int             `json:"portions" validate:"omitempty,gt=0"`
	PrepMinutes    *int             `json:"prep_minutes" validate:"omitempty,gte=0"`
	Instructions   *string          `json:"instructions"`
	ShelfLifeHours *int             `json:"shelf_life_hours" validate:"omitempty,gte=0"`
	SalePrice      *decimal.Decimal `json:"sale_price" validate:"omitempty,gte=0"`
	Active         *bool            `json:"active"`
	Ingredients    *[]LineInput     `json:"ingredients" validate:"omitempty,min=1,dive"`
}

type CostPreviewRequest struct {
	SalePrice   decimal.Decimal `json:"sale_price" validate:"gte=0"`
	Ingredients []LineInput     `json:"ingredients" validate:"required,min=1,dive"`
}

// GET /api/sheets?active=1&category=Mains&search=ris
func ListSheetsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(db.WithContext(c.UserContext()), Filter{
			Active:   httpx.QueryBool(c, "active"),
			Category: c.Query("category"),
			Search:   c.Query("search"),
		})
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/sheets/categories
func CategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		categories, err := Categories(db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		return c.JSON(categories)
	}
}

// GET /api/sheets/:id
func GetSheetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		s, err := Get(db.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// POST /api/sheets
func CreateSheetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSheetRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var created *models.TechnicalSheet
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = Create(tx, Input{
				DishName:       body.DishName,
				Category:       body.Category,
				Description:    body.Description,
				Portions:       body.Portions,
				PrepMinutes:    body.PrepMinutes,
				Instructions:   body.Instructions,
				ShelfLifeHours: body.ShelfLifeHours,
				SalePrice:      body.SalePrice,
				Lines:          body.Ingredients,
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "technical_sheet",
				EntityID:    created.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Technical sheet created: %s", created.DishName),
				After:       created,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// PUT /api/sheets/:id
func UpdateSheetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateSheetRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var updated *models.TechnicalSheet
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			before, after, err := Update(tx, id, Patch{
				DishName:       body.DishName,
				Category:       body.Category,
				Description:    body.Description,
				Portions:       body.Portions,
				PrepMinutes:    body.PrepMinutes,
				Instructions:   body.Instructions,
				ShelfLifeHours: body.ShelfLifeHours,
				SalePrice:      body.SalePrice,
				Active:         body.Active,
				Lines:          body.Ingredients,
			})
			if err != nil {
				return err
			}
			updated = after
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "technical_sheet",
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Technical sheet updated: %s", after.DishName),
				Before:      before,
				After:       after,
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(updated)
	}
}

// DELETE /api/sheets/:id (admin)
func DeleteSheetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			s, err := Deactivate(tx, id)
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "technical_sheet",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Technical sheet deactivated: %s", s.DishName),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "technical sheet deactivated"})
	}
}

// POST /api/sheets/cost-preview
func CostPreviewHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CostPreviewRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		preview, err := CostPreview(db.WithContext(c.UserContext()), body.Ingredients, body.SalePrice)
		if err != nil {
			return err
		}
		return c.JSON(preview)
	}
}
