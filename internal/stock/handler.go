package stock

import (
	"fmt"

	"silvess-backend/internal/audit"
	"silvess-backend/internal/auth"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/logger"
	"silvess-backend/internal/metrics"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateIngredientRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Unit         string          `json:"unit" validate:"required,max=20"`
	UnitCost     decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	CurrentStock decimal.Decimal `json:"current_stock" validate:"gte=0"`
	MinimumStock decimal.Decimal `json:"minimum_stock" validate:"gte=0"`
	Supplier     string          `json:"supplier" validate:"max=150"`
}

type UpdateIngredientRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=100"`
	Unit         *string          `json:"unit" validate:"omitempty,max=20"`
	UnitCost     *decimal.Decimal `json:"unit_cost" validate:"omitempty,gte=0"`
	MinimumStock *decimal.Decimal `json:"minimum_stock" validate:"omitempty,gte=0"`
	Supplier     *string          `json:"supplier" validate:"omitempty,max=150"`
	Active       *bool            `json:"active"`
}

type StockMovementRequest struct {
	Kind     models.MovementKind `json:"kind" validate:"required,oneof=entry exit"`
	Quantity decimal.Decimal     `json:"quantity" validate:"gt=0"`
	Note     string              `json:"note" validate:"max=255"`
}

type StockMovementResponse struct {
	IngredientID uint                 `json:"ingredient_id"`
	Previous     decimal.Decimal      `json:"previous_stock"`
	Current      decimal.Decimal      `json:"current_stock"`
	Movement     models.StockMovement `json:"movement"`
}

var ledger = NewLedger()

// GET /api/ingredients?active=1&search=flo
func ListIngredientsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := ledger.ListIngredients(db.WithContext(c.UserContext()), IngredientFilter{
			Active: httpx.QueryBool(c, "active"),
			Search: c.Query("search"),
		})
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/ingredients/low-stock
func LowStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := ledger.LowStock(db.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/ingredients/:id
func GetIngredientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		ing, err := ledger.GetIngredient(db.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ing)
	}
}

// POST /api/ingredients
func CreateIngredientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIngredientRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var (
			ing *models.Ingredient
			res *Result
		)
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			ing, res, err = ledger.CreateIngredient(tx, IngredientInput{
				Name:         body.Name,
				Unit:         body.Unit,
				UnitCost:     body.UnitCost,
				InitialStock: body.CurrentStock,
				MinimumStock: body.MinimumStock,
				Supplier:     body.Supplier,
			}, auth.UserIDPtr(c))
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "ingredient",
				EntityID:    ing.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Ingredient created: %s", ing.Name),
				After:       ing,
			})
		})
		if err != nil {
			return err
		}

		if res != nil {
			metrics.RecordMovement(string(res.Movement.Kind), string(res.Movement.Source))
		}
		return c.Status(fiber.StatusCreated).JSON(ing)
	}
}

// PUT /api/ingredients/:id
func UpdateIngredientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateIngredientRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		var updated *models.Ingredient
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			before, after, err := ledger.UpdateIngredient(tx, id, IngredientPatch{
				Name:         body.Name,
				Unit:         body.Unit,
				UnitCost:     body.UnitCost,
				MinimumStock: body.MinimumStock,
				Supplier:     body.Supplier,
				Active:       body.Active,
			})
			if err != nil {
				return err
			}
			updated = after
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "ingredient",
				EntityID:    id,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Ingredient updated: %s", after.Name),
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

// DELETE /api/ingredients/:id (admin)
func DeleteIngredientHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		actor, _ := auth.Current(c)

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			ing, err := ledger.DeactivateIngredient(tx, id)
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "ingredient",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Ingredient deactivated: %s", ing.Name),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "ingredient deactivated"})
	}
}

// POST /api/ingredients/:id/stock
func StockMovementHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body StockMovementRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		var res *Result
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = ledger.Apply(tx, Movement{
				IngredientID: id,
				Kind:         body.Kind,
				Quantity:     body.Quantity,
				Source:       models.SourceManual,
				UserID:       auth.UserIDPtr(c),
				Note:         body.Note,
			})
			return err
		})
		if err != nil {
			return err
		}

		metrics.RecordMovement(string(res.Movement.Kind), string(res.Movement.Source))
		return c.JSON(StockMovementResponse{
			IngredientID: id,
			Previous:     res.Previous,
			Current:      res.Current,
			Movement:     res.Movement,
		})
	}
}

// GET /api/ingredients/:id/movements?limit=50
func MovementHistoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		tx := db.WithContext(c.UserContext())

		check, err := ledger.Verify(tx, id)
		if err != nil {
			return err
		}
		movements, err := ledger.History(tx, id, c.QueryInt("limit", 0))
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"check":     check,
			"movements": movements,
		})
	}
}

// POST /api/ingredients/import (multipart, field "file")
func ImportIngredientsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open file")
		}
		defer f.Close()
		actor, _ := auth.Current(c)

		var res *ImportResult
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = ledger.ImportIngredients(tx, f, auth.UserIDPtr(c))
			if err != nil {
				return err
			}
			if len(res.Created) == 0 {
				return nil
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "ingredient",
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Ingredients imported from %s: %d created, %d skipped", fh.Filename, len(res.Created), len(res.Skipped)),
				After:       res.Created,
			})
		})
		if err != nil {
			return err
		}

		for _, r := range res.Results {
			metrics.RecordMovement(string(r.Movement.Kind), string(r.Movement.Source))
		}
		logger.FromCtx(c).Info("ingredients imported",
			zap.String("file", fh.Filename),
			zap.Int("created", len(res.Created)),
			zap.Int("skipped", len(res.Skipped)))
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}
