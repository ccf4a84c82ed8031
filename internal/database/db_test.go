package database

import (
	"testing"

	"silvess-backend/internal/config"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenSQLiteMigratesSchema(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:", DBLogLevel: "silent"}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, m := range models.All() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T was not created", m)
		}
	}

	if err := Ping(db); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:", DBLogLevel: "silent"}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ing := models.Ingredient{
		Name:         "Flour",
		Unit:         "kg",
		UnitCost:     decimal.RequireFromString("4.35"),
		CurrentStock: decimal.RequireFromString("12.6"),
		Active:       true,
	}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var got models.Ingredient
	if err := db.First(&got, ing.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.CurrentStock.Equal(ing.CurrentStock) || !got.UnitCost.Equal(ing.UnitCost) {
		t.Errorf("decimal values changed: stock=%s cost=%s", got.CurrentStock, got.UnitCost)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:", DBLogLevel: "silent"}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	mv := models.StockMovement{
		IngredientID: 999,
		Kind:         models.MovementEntry,
		Quantity:     decimal.NewFromInt(1),
		Source:       models.SourceManual,
	}
	if err := db.Create(&mv).Error; err == nil {
		t.Fatal("movement for a missing ingredient should be rejected")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(&config.Config{DBDriver: "mysql"}, nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMigrateLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	if _, err := Open(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:", DBLogLevel: "silent"}, zap.New(core)); err != nil {
		t.Fatalf("open: %v", err)
	}

	entries := logs.FilterMessage("schema migrated").All()
	if len(entries) != 1 || entries[0].ContextMap()["driver"] != "sqlite" {
		t.Fatalf("migration log = %+v", logs.All())
	}
}

func TestStockConstraintLookupErrorIsReturned(t *testing.T) {
	db, err := Open(&config.Config{DBDriver: "sqlite", DatabaseDSN: ":memory:", DBLogLevel: "silent"}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// SQLite has no information_schema, so the lookup itself fails.
	if err := ensureStockConstraint(db, zap.NewNop()); err == nil {
		t.Fatal("expected the failed constraint lookup to be reported")
	}
}
