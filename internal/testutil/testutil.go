// Package testutil opens throwaway databases and seeds records for tests.
package testutil

import (
	"testing"

	"silvess-backend/internal/config"
	"silvess-backend/internal/database"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.Config{
		DBDriver:    "sqlite",
		DatabaseDSN: ":memory:",
		DBLogLevel:  "silent",
	}, nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Dec parses s or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// User inserts an active user with the given role.
func User(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, PasswordHash: "x", Role: role, Active: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Ingredient inserts an active ingredient with the given unit cost and an
// opening balance recorded as an initial entry, so the ledger invariant holds.
func Ingredient(t *testing.T, db *gorm.DB, name, unitCost, stock string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{
		Name:         name,
		Unit:         "kg",
		UnitCost:     Dec(t, unitCost),
		CurrentStock: Dec(t, stock),
		Active:       true,
	}
	if err := db.Create(ing).Error; err != nil {
		t.Fatalf("create ingredient: %v", err)
	}
	if ing.CurrentStock.IsPositive() {
		mv := models.StockMovement{
			IngredientID:    ing.ID,
			Kind:            models.MovementEntry,
			Quantity:        ing.CurrentStock,
			PreviousBalance: decimal.Zero,
			NewBalance:      ing.CurrentStock,
			Source:          models.SourceInitial,
			Note:            "Initial stock",
		}
		if err := db.Create(&mv).Error; err != nil {
			t.Fatalf("create initial movement: %v", err)
		}
	}
	return ing
}

// Reload fetches the ingredient again.
func Reload(t *testing.T, db *gorm.DB, id uint) models.Ingredient {
	t.Helper()
	var ing models.Ingredient
	if err := db.First(&ing, id).Error; err != nil {
		t.Fatalf("reload ingredient %d: %v", id, err)
	}
	return ing
}
