package stock

import (
	"errors"
	"testing"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"
	"silvess-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestApplyEntryAndExit(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Flour", "4", "10")
	l := NewLedger()

	res, err := l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementEntry, Quantity: testutil.Dec(t, "2.5"), Note: "delivery"})
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if !res.Previous.Equal(testutil.Dec(t, "10")) || !res.Current.Equal(testutil.Dec(t, "12.5")) {
		t.Fatalf("entry result = %s -> %s", res.Previous, res.Current)
	}
	if res.Movement.Source != models.SourceManual {
		t.Fatalf("default source = %q", res.Movement.Source)
	}

	res, err = l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "12.5")})
	if err != nil {
		t.Fatalf("exit of whole balance: %v", err)
	}
	if !res.Current.IsZero() {
		t.Fatalf("balance after draining = %s", res.Current)
	}
	if got := testutil.Reload(t, db, ing.ID).CurrentStock; !got.IsZero() {
		t.Fatalf("stored balance = %s", got)
	}
}

func TestApplyInsufficientStockLeavesLedgerUntouched(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Butter", "20", "1")
	l := NewLedger()

	_, err := l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "1.2")})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientStock) || !errors.Is(err, apperr.ErrRule) {
		t.Fatalf("error does not unwrap to the rule kind: %v", err)
	}
	if !insufficient.Available.Equal(testutil.Dec(t, "1")) || !insufficient.Requested.Equal(testutil.Dec(t, "1.2")) {
		t.Fatalf("details = %+v", insufficient.Details())
	}

	if got := testutil.Reload(t, db, ing.ID).CurrentStock; !got.Equal(testutil.Dec(t, "1")) {
		t.Fatalf("balance changed to %s", got)
	}
	history, _ := l.History(db, ing.ID, 0)
	if len(history) != 1 {
		t.Fatalf("movements = %d, want only the opening one", len(history))
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Salt", "1", "5")
	l := NewLedger()

	cases := []struct {
		name string
		m    Movement
		kind error
	}{
		{"zero quantity", Movement{IngredientID: ing.ID, Kind: models.MovementEntry, Quantity: testutil.Dec(t, "0")}, apperr.ErrValidation},
		{"negative quantity", Movement{IngredientID: ing.ID, Kind: models.MovementEntry, Quantity: testutil.Dec(t, "-1")}, apperr.ErrValidation},
		{"unknown kind", Movement{IngredientID: ing.ID, Kind: "gift", Quantity: testutil.Dec(t, "1")}, apperr.ErrValidation},
		{"missing ingredient", Movement{IngredientID: 999, Kind: models.MovementEntry, Quantity: testutil.Dec(t, "1")}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Apply(db, tc.m); !errors.Is(err, tc.kind) {
				t.Fatalf("got %v, want %v", err, tc.kind)
			}
		})
	}
}

func TestReconcileWritesTrueDelta(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Rice", "6", "100")
	l := NewLedger()

	res, err := l.Reconcile(db, ing.ID, testutil.Dec(t, "92"), Movement{Source: models.SourceInventory, Note: "Inventory adjustment - shelf"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Movement.Kind != models.MovementExit || !res.Movement.Quantity.Equal(testutil.Dec(t, "8")) {
		t.Fatalf("movement = %s %s, want exit 8", res.Movement.Kind, res.Movement.Quantity)
	}

	res, err = l.Reconcile(db, ing.ID, testutil.Dec(t, "95.5"), Movement{Source: models.SourceInventory})
	if err != nil {
		t.Fatalf("Reconcile up: %v", err)
	}
	if res.Movement.Kind != models.MovementEntry || !res.Movement.Quantity.Equal(testutil.Dec(t, "3.5")) {
		t.Fatalf("movement = %s %s, want entry 3.5", res.Movement.Kind, res.Movement.Quantity)
	}

	if _, err := l.Reconcile(db, ing.ID, testutil.Dec(t, "95.5"), Movement{}); err != nil {
		t.Fatalf("no-op reconcile: %v", err)
	}
	history, _ := l.History(db, ing.ID, 0)
	if len(history) != 3 {
		t.Fatalf("movements = %d, want 3", len(history))
	}

	if _, err := l.Reconcile(db, ing.ID, testutil.Dec(t, "-1"), Movement{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("negative target: %v", err)
	}
}

func TestBalanceMatchesSignedSum(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Milk", "3", "10")
	l := NewLedger()

	steps := []struct {
		kind models.MovementKind
		qty  string
	}{
		{models.MovementExit, "0.2"},
		{models.MovementExit, "0.2"},
		{models.MovementExit, "0.2"},
		{models.MovementEntry, "4.35"},
		{models.MovementExit, "7"},
	}
	for _, s := range steps {
		if _, err := l.Apply(db, Movement{IngredientID: ing.ID, Kind: s.kind, Quantity: testutil.Dec(t, s.qty)}); err != nil {
			t.Fatalf("apply %s %s: %v", s.kind, s.qty, err)
		}
	}
	if _, err := l.Reconcile(db, ing.ID, testutil.Dec(t, "6"), Movement{Source: models.SourceInventory}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	check, err := l.Verify(db, ing.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !check.Consistent || !check.Balance.Equal(testutil.Dec(t, "6")) || check.Movements != 7 {
		t.Fatalf("check = %+v", check)
	}
}

func TestQuantitiesRoundedToColumnScale(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Yeast", "30", "10")
	l := NewLedger()

	res, err := l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "0.12345")})
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if !res.Movement.Quantity.Equal(testutil.Dec(t, "0.1235")) || !res.Current.Equal(testutil.Dec(t, "9.8765")) {
		t.Fatalf("exit = %s -> balance %s, want 0.1235 -> 9.8765", res.Movement.Quantity, res.Current)
	}

	// 12.35 g of a sale line
	if _, err := l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "0.01235")}); err != nil {
		t.Fatalf("sale exit: %v", err)
	}
	if _, err := l.Reconcile(db, ing.ID, testutil.Dec(t, "9.00004"), Movement{Source: models.SourceInventory}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	history, _ := l.History(db, ing.ID, 0)
	sum := decimal.Zero
	for _, mv := range history {
		if mv.Quantity.Round(4).Cmp(mv.Quantity) != 0 || mv.NewBalance.Round(4).Cmp(mv.NewBalance) != 0 {
			t.Fatalf("movement %d stored beyond 4 places: %s / %s", mv.ID, mv.Quantity, mv.NewBalance)
		}
		sum = sum.Add(mv.Signed())
	}
	balance := testutil.Reload(t, db, ing.ID).CurrentStock
	if !balance.Equal(testutil.Dec(t, "9")) || !sum.Equal(balance) {
		t.Fatalf("balance %s, ledger sum %s, want both 9", balance, sum)
	}
	check, err := l.Verify(db, ing.ID)
	if err != nil || !check.Consistent {
		t.Fatalf("Verify = %+v, %v", check, err)
	}

	_, err = l.Apply(db, Movement{IngredientID: ing.ID, Kind: models.MovementEntry, Quantity: testutil.Dec(t, "0.00004")})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("quantity below scale: %v", err)
	}
}

func TestRolledBackTransactionKeepsNothing(t *testing.T) {
	db := testutil.NewDB(t)
	ing := testutil.Ingredient(t, db, "Oil", "9", "5")
	l := NewLedger()

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := l.Apply(tx, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "2")}); err != nil {
			return err
		}
		_, err := l.Apply(tx, Movement{IngredientID: ing.ID, Kind: models.MovementExit, Quantity: testutil.Dec(t, "4")})
		return err
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if got := testutil.Reload(t, db, ing.ID).CurrentStock; !got.Equal(testutil.Dec(t, "5")) {
		t.Fatalf("balance = %s after rollback", got)
	}
	check, _ := l.Verify(db, ing.ID)
	if !check.Consistent || check.Movements != 1 {
		t.Fatalf("check = %+v", check)
	}
}

func TestCreateIngredientBooksOpeningStock(t *testing.T) {
	db := testutil.NewDB(t)
	l := NewLedger()

	ing, res, err := l.CreateIngredient(db, IngredientInput{
		Name:         " Tomato ",
		Unit:         "kg",
		UnitCost:     testutil.Dec(t, "7.5"),
		InitialStock: testutil.Dec(t, "12"),
		MinimumStock: testutil.Dec(t, "2"),
	}, nil)
	if err != nil {
		t.Fatalf("CreateIngredient: %v", err)
	}
	if ing.Name != "Tomato" || !ing.Active {
		t.Fatalf("ingredient = %+v", ing)
	}
	if res == nil || res.Movement.Source != models.SourceInitial || res.Movement.Note != "Initial stock" {
		t.Fatalf("opening movement = %+v", res)
	}
	check, _ := l.Verify(db, ing.ID)
	if !check.Consistent || !check.Balance.Equal(testutil.Dec(t, "12")) {
		t.Fatalf("check = %+v", check)
	}

	empty, res, err := l.CreateIngredient(db, IngredientInput{Name: "Basil", Unit: "kg"}, nil)
	if err != nil || res != nil {
		t.Fatalf("zero opening stock: res=%v err=%v", res, err)
	}
	if !testutil.Reload(t, db, empty.ID).CurrentStock.IsZero() {
		t.Fatal("zero opening stock stored as non-zero")
	}
}

func TestListAndLowStock(t *testing.T) {
	db := testutil.NewDB(t)
	l := NewLedger()

	flour := testutil.Ingredient(t, db, "Flour", "4", "1")
	testutil.Ingredient(t, db, "Sugar", "3", "50")
	yeast := testutil.Ingredient(t, db, "Yeast", "30", "0")
	db.Model(flour).Update("minimum_stock", testutil.Dec(t, "2"))
	if _, err := l.DeactivateIngredient(db, yeast.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	active, err := l.ListIngredients(db, IngredientFilter{})
	if err != nil || len(active) != 2 {
		t.Fatalf("active list = %d, %v", len(active), err)
	}

	found, _ := l.ListIngredients(db, IngredientFilter{Search: "FLO"})
	if len(found) != 1 || found[0].ID != flour.ID {
		t.Fatalf("search result = %+v", found)
	}

	inactive := false
	hidden, _ := l.ListIngredients(db, IngredientFilter{Active: &inactive})
	if len(hidden) != 1 || hidden[0].ID != yeast.ID {
		t.Fatalf("inactive list = %+v", hidden)
	}

	low, err := l.LowStock(db)
	if err != nil || len(low) != 1 || low[0].ID != flour.ID {
		t.Fatalf("low stock = %+v, %v", low, err)
	}
}
