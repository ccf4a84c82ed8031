package stock

import (
	"errors"
	"fmt"

	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement describes one stock change to apply.
type Movement struct {
	IngredientID uint
	Kind         models.MovementKind
	Quantity     decimal.Decimal
	Source       models.MovementSource
	ReferenceID  *uint
	UserID       *uint
	Note         string
}

// Result is the outcome of a ledger write.
type Result struct {
	Previous decimal.Decimal
	Current  decimal.Decimal
	Movement models.StockMovement
}

// Ledger writes stock balances and their movement lines. Every method works on
// the transaction it is given; the caller commits or rolls back.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Scale of the numeric stock columns. Quantities are rounded to it before any
// arithmetic so the stored balance always equals the stored ledger sum.
const quantityScale = 4

// Apply adds (entry) or removes (exit) a quantity. An exit larger than the
// balance fails with an *InsufficientStockError and writes nothing.
func (l *Ledger) Apply(tx *gorm.DB, m Movement) (*Result, error) {
	if !m.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	m.Quantity = m.Quantity.Round(quantityScale)
	if !m.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	ing, err := lockIngredient(tx, m.IngredientID)
	if err != nil {
		return nil, err
	}

	prev := ing.CurrentStock
	var next decimal.Decimal
	switch m.Kind {
	case models.MovementEntry:
		next = prev.Add(m.Quantity)
	case models.MovementExit:
		if m.Quantity.GreaterThan(prev) {
			return nil, &InsufficientStockError{
				IngredientID:   ing.ID,
				IngredientName: ing.Name,
				Available:      prev,
				Requested:      m.Quantity,
			}
		}
		next = prev.Sub(m.Quantity)
	}

	return write(tx, ing, next, m)
}

// Reconcile forces the balance to target and appends one compensating
// movement carrying the real delta from the current balance. Nothing is
// written when the balance already equals target.
func (l *Ledger) Reconcile(tx *gorm.DB, ingredientID uint, target decimal.Decimal, m Movement) (*Result, error) {
	target = target.Round(quantityScale)
	if target.IsNegative() {
		return nil, ErrNegativeTarget
	}

	ing, err := lockIngredient(tx, ingredientID)
	if err != nil {
		return nil, err
	}

	delta := target.Sub(ing.CurrentStock)
	if delta.IsZero() {
		return &Result{Previous: ing.CurrentStock, Current: ing.CurrentStock}, nil
	}

	m.IngredientID = ingredientID
	m.Quantity = delta.Abs()
	m.Kind = models.MovementEntry
	if delta.IsNegative() {
		m.Kind = models.MovementExit
	}

	return write(tx, ing, target, m)
}

// Balance returns the stored stock of an ingredient.
func (l *Ledger) Balance(tx *gorm.DB, ingredientID uint) (decimal.Decimal, error) {
	var ing models.Ingredient
	if err := tx.Select("id", "current_stock").First(&ing, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrIngredientNotFound
		}
		return decimal.Zero, err
	}
	return ing.CurrentStock, nil
}

// History lists the movements of an ingredient, newest first. limit <= 0
// returns all of them.
func (l *Ledger) History(tx *gorm.DB, ingredientID uint, limit int) ([]models.StockMovement, error) {
	q := tx.Where("ingredient_id = ?", ingredientID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var movements []models.StockMovement
	if err := q.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Check compares the stored balance with the sum of the ledger.
type Check struct {
	IngredientID uint            `json:"ingredient_id"`
	Balance      decimal.Decimal `json:"balance"`
	LedgerSum    decimal.Decimal `json:"ledger_sum"`
	Movements    int             `json:"movements"`
	Consistent   bool            `json:"consistent"`
}

// Verify recomputes the signed sum of every movement of the ingredient.
func (l *Ledger) Verify(tx *gorm.DB, ingredientID uint) (*Check, error) {
	balance, err := l.Balance(tx, ingredientID)
	if err != nil {
		return nil, err
	}

	movements, err := l.History(tx, ingredientID, 0)
	if err != nil {
		return nil, err
	}

	sum := decimal.Zero
	for _, mv := range movements {
		sum = sum.Add(mv.Signed())
	}

	return &Check{
		IngredientID: ingredientID,
		Balance:      balance,
		LedgerSum:    sum,
		Movements:    len(movements),
		Consistent:   sum.Equal(balance),
	}, nil
}

// lockIngredient reads the ingredient row. On PostgreSQL the row stays locked
// until the transaction ends so concurrent movements queue up behind it.
func lockIngredient(tx *gorm.DB, id uint) (*models.Ingredient, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ing models.Ingredient
	if err := q.First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("load ingredient %d: %w", id, err)
	}
	return &ing, nil
}

func write(tx *gorm.DB, ing *models.Ingredient, next decimal.Decimal, m Movement) (*Result, error) {
	prev := ing.CurrentStock

	if err := tx.Model(&models.Ingredient{}).
		Where("id = ?", ing.ID).
		Update("current_stock", next).Error; err != nil {
		return nil, fmt.Errorf("update stock of ingredient %d: %w", ing.ID, err)
	}

	source := m.Source
	if source == "" {
		source = models.SourceManual
	}

	mv := models.StockMovement{
		IngredientID:    ing.ID,
		Kind:            m.Kind,
		Quantity:        m.Quantity,
		PreviousBalance: prev,
		NewBalance:      next,
		Source:          source,
		ReferenceID:     m.ReferenceID,
		UserID:          m.UserID,
		Note:            truncate(m.Note, 255),
	}
	if err := tx.Create(&mv).Error; err != nil {
		return nil, fmt.Errorf("append movement for ingredient %d: %w", ing.ID, err)
	}

	ing.CurrentStock = next
	return &Result{Previous: prev, Current: next, Movement: mv}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
