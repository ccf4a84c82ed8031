package menu

import (
	"fmt"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/config"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateMenuRequest struct {
	Date        string      `json:"date" validate:"required,date"`
	Name        string      `json:"name" validate:"required,max=150"`
	Description string      `json:"description"`
	Active      *bool       `json:"active"`
	Dishes      []DishInput `json:"dishes" validate:"dive"`
}

type UpdateMenuRequest struct {
	Date        *string      `json:"date" validate:"omitempty,date"`
	Name        *string      `json:"name" validate:"omitempty,max=150"`
	Description *string      `json:"description"`
	Active      *bool        `json:"active"`
	Dishes      *[]DishInput `json:"dishes" validate:"omitempty,dive"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type CreateTableRequest struct {
	Number int   `json:"number" validate:"required,gt=0"`
	MenuID *uint `json:"menu_id" validate:"omitempty,gt=0"`
	Active *bool `json:"active"`
}

type UpdateTableRequest struct {
	MenuID *uint `json:"menu_id" validate:"omitempty,gt=0"`
	Active *bool `json:"active"`
}

// GET /api/menus?active=1&date=2024-05-01 (public)
func ListMenusHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(db.WithContext(c.UserContext()), Filter{
			Active: httpx.QueryBool(c, "active"),
			Date:   c.Query("date"),
		})
		if err != nil {
			return err
		}
		return c.JSON(PublicList(list))
	}
}

// GET /api/menus/:id (public)
func GetMenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		m, err := Get(db.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(Public(m))
	}
}

// POST /api/menus
func CreateMenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMenuRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var created *models.Menu
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = Create(tx, Input{
				Date:        body.Date,
				Name:        body.Name,
				Description: body.Description,
				Active:      body.Active,
				Dishes:      body.Dishes,
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "menu",
				EntityID:    created.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Menu created: %s (%s)", created.Name, created.Date),
				After:       created,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// PUT /api/menus/:id
func UpdateMenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateMenuRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var updated *models.Menu
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			before, after, err := Update(tx, id, Patch{
				Date:        body.Date,
				Name:        body.Name,
				Description: body.Description,
				Active:      body.Active,
				Dishes:      body.Dishes,
			})
			if err != nil {
				return err
			}
			updated = after
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "menu",
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Menu updated: %s", after.Name),
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

// DELETE /api/menus/:id
func DeleteMenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			m, err := Deactivate(tx, id)
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "menu",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Menu deactivated: %s", m.Name),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "menu deactivated"})
	}
}

// PUT /api/menus/:id/dishes/:dishId/availability
func DishAvailabilityHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		menuID, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		dishID, err := httpx.ParamID(c, "dishId")
		if err != nil {
			return err
		}
		var body AvailabilityRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		if err := SetAvailability(db.WithContext(c.UserContext()), menuID, dishID, *body.Available); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "availability updated", "available": *body.Available})
	}
}

// GET /api/menus/tables
func ListTablesHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	tables := NewTables(cfg.FrontendURL)
	return func(c *fiber.Ctx) error {
		list, err := tables.List(db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// POST /api/menus/tables
func CreateTableHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	tables := NewTables(cfg.FrontendURL)
	return func(c *fiber.Ctx) error {
		var body CreateTableRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var created *models.Table
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = tables.Create(tx, TableInput{
				Number: body.Number,
				MenuID: body.MenuID,
				Active: body.Active,
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "table",
				EntityID:    created.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Table created: %d", created.Number),
				After:       fiber.Map{"number": created.Number, "menu_id": created.MenuID, "active": created.Active},
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// PUT /api/menus/tables/:id
func UpdateTableHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	tables := NewTables(cfg.FrontendURL)
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateTableRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var updated *models.Table
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			before, after, err := tables.Update(tx, id, TablePatch{MenuID: body.MenuID, Active: body.Active})
			if err != nil {
				return err
			}
			updated = after
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "table",
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Table updated: %d", after.Number),
				Before:      fiber.Map{"menu_id": before.MenuID, "active": before.Active},
				After:       fiber.Map{"menu_id": after.MenuID, "active": after.Active},
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(updated)
	}
}

// GET /api/menus/tables/:id/qrcode
func TableCodeHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	tables := NewTables(cfg.FrontendURL)
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		code, err := tables.Code(db.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(code)
	}
}
