package sales

import (
	"errors"
	"testing"
	"time"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"
	"silvess-backend/internal/sheet"
	"silvess-backend/internal/stock"
	"silvess-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newSheet(t *testing.T, db *gorm.DB, name, category, price string, lines ...sheet.LineInput) *models.TechnicalSheet {
	t.Helper()
	s, err := sheet.Create(db, sheet.Input{
		DishName:  name,
		Category:  category,
		SalePrice: testutil.Dec(t, price),
		Lines:     lines,
	})
	if err != nil {
		t.Fatalf("create sheet %s: %v", name, err)
	}
	return s
}

func grams(id uint, g int64) sheet.LineInput {
	return sheet.LineInput{IngredientID: id, Grams: decimal.NewFromInt(g)}
}

func TestRecordDeductsRecipe(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Cheese", "5", "10")
	s := newSheet(t, db, "Toast", "Snacks", "12.5", grams(ing.ID, 200))
	r := NewRecorder(stock.NewLedger())

	receipt, err := r.Record(db, SaleInput{SheetID: s.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !receipt.Sale.UnitPrice.Equal(testutil.Dec(t, "12.5")) || !receipt.Sale.TotalPrice.Equal(testutil.Dec(t, "37.5")) {
		t.Fatalf("prices = %s x3 = %s", receipt.Sale.UnitPrice, receipt.Sale.TotalPrice)
	}
	if len(receipt.Movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(receipt.Movements))
	}
	mv := receipt.Movements[0]
	if mv.Kind != models.MovementExit || !mv.Quantity.Equal(testutil.Dec(t, "0.6")) {
		t.Fatalf("movement = %s %s, want exit 0.6", mv.Kind, mv.Quantity)
	}
	if mv.Note != "Sale: Toast (x3)" || mv.Source != models.SourceSale || *mv.ReferenceID != receipt.Sale.ID {
		t.Fatalf("movement tags = %+v", mv)
	}
	if got := testutil.Reload(t, db, ing.ID).CurrentStock; !got.Equal(testutil.Dec(t, "9.4")) {
		t.Fatalf("stock = %s, want 9.4", got)
	}
}

func TestRecordRollsBackOnInsufficientStock(t *testing.T) {
	db := testutil.NewDB(t)
	bread := testutil.Ingredient(t, db, "Bread", "3", "5")
	ham := testutil.Ingredient(t, db, "Ham", "20", "0.1")
	s := newSheet(t, db, "Sandwich", "Snacks", "8", grams(bread.ID, 100), grams(ham.ID, 50))
	r := NewRecorder(stock.NewLedger())

	_, err := r.Record(db, SaleInput{SheetID: s.ID, Quantity: 3})
	if !errors.Is(err, stock.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var sales int64
	db.Model(&models.Sale{}).Count(&sales)
	if sales != 0 {
		t.Fatalf("sale kept after failure")
	}
	if got := testutil.Reload(t, db, bread.ID).CurrentStock; !got.Equal(testutil.Dec(t, "5")) {
		t.Fatalf("bread stock = %s, partial deduction kept", got)
	}
	var exits int64
	db.Model(&models.StockMovement{}).Where("source = ?", models.SourceSale).Count(&exits)
	if exits != 0 {
		t.Fatalf("sale movements kept: %d", exits)
	}
}

func TestRecordValidation(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Tea", "50", "1")
	s := newSheet(t, db, "Tea", "Drinks", "3", grams(ing.ID, 2))
	r := NewRecorder(stock.NewLedger())

	if _, err := r.Record(db, SaleInput{SheetID: 404, Quantity: 1}); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("missing sheet: %v", err)
	}
	if _, err := r.Record(db, SaleInput{SheetID: s.ID, Quantity: 0}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero quantity: %v", err)
	}
	table := uint(77)
	if _, err := r.Record(db, SaleInput{SheetID: s.ID, Quantity: 1, TableID: &table}); !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("missing table: %v", err)
	}

	if _, err := sheet.Deactivate(db, s.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := r.Record(db, SaleInput{SheetID: s.ID, Quantity: 1}); !errors.Is(err, apperr.ErrRule) {
		t.Fatalf("inactive sheet: %v", err)
	}
}

func TestListAndSummarize(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Flour", "4", "100")
	pizza := newSheet(t, db, "Pizza", "Mains", "10", grams(ing.ID, 100))
	bread := newSheet(t, db, "Bread", "Sides", "2", grams(ing.ID, 50))
	table := models.Table{Number: 4, Active: true}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	r := NewRecorder(stock.NewLedger())
	at := func(ts string) {
		r.now = func() time.Time {
			tm, _ := time.Parse(time.RFC3339, ts)
			return tm
		}
	}

	at("2024-05-01T12:00:00Z")
	r.Record(db, SaleInput{SheetID: pizza.ID, Quantity: 2, TableID: &table.ID})
	at("2024-05-01T20:00:00Z")
	r.Record(db, SaleInput{SheetID: bread.ID, Quantity: 3})
	at("2024-05-02T13:00:00Z")
	r.Record(db, SaleInput{SheetID: pizza.ID, Quantity: 1})
	at("2024-05-05T13:00:00Z")
	r.Record(db, SaleInput{SheetID: pizza.ID, Quantity: 5})

	items, err := r.List(db, Filter{From: "2024-05-01", To: "2024-05-02"})
	if err != nil || len(items) != 3 {
		t.Fatalf("list = %d, %v", len(items), err)
	}
	if items[0].DishName != "Pizza" || !items[0].SoldAt.Equal(time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("newest first expected, got %+v", items[0])
	}
	byTable, _ := r.List(db, Filter{TableID: &table.ID})
	if len(byTable) != 1 || byTable[0].TableNumber == nil || *byTable[0].TableNumber != 4 {
		t.Fatalf("table filter = %+v", byTable)
	}

	sum, err := r.Summarize(db, "2024-05-01", "2024-05-02")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Totals.Count != 3 || !sum.Totals.Revenue.Equal(testutil.Dec(t, "36")) || !sum.Totals.AverageTicket.Equal(testutil.Dec(t, "12")) {
		t.Fatalf("totals = %+v", sum.Totals)
	}
	if len(sum.ByDish) != 2 || sum.ByDish[0].DishName != "Pizza" || sum.ByDish[0].Quantity != 3 {
		t.Fatalf("by dish = %+v", sum.ByDish)
	}
	if len(sum.ByDay) != 2 || sum.ByDay[0].Date != "2024-05-01" || sum.ByDay[0].Count != 2 {
		t.Fatalf("by day = %+v", sum.ByDay)
	}
	if len(sum.ByCategory) != 2 || sum.ByCategory[0].Category != "Mains" || !sum.ByCategory[1].Revenue.Equal(testutil.Dec(t, "6")) {
		t.Fatalf("by category = %+v", sum.ByCategory)
	}

	if _, err := r.Summarize(db, "2024-05-03", "2024-05-01"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("inverted period: %v", err)
	}
}
