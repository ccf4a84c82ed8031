package stock

import (
	"fmt"
	"io"
	"strings"

	"silvess-backend/internal/apperr"
	"silvess-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Spreadsheet columns, in order. Only name and unit are required.
var importColumns = []string{"name", "unit", "unit_cost", "current_stock", "minimum_stock", "supplier"}

type ImportSkip struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created []models.Ingredient `json:"created"`
	Skipped []ImportSkip        `json:"skipped"`
	Results []Result            `json:"-"`
}

// ImportIngredients creates one ingredient per row of the first sheet of an
// XLSX workbook. Rows naming an existing ingredient (case-insensitive) or
// holding bad numbers are skipped and reported; the rest go through
// CreateIngredient so opening stock is booked as an initial entry.
func (l *Ledger) ImportIngredients(tx *gorm.DB, r io.Reader, userID *uint) (*ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("could not read spreadsheet: " + err.Error())
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("spreadsheet has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("could not read sheet: " + err.Error())
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("spreadsheet is empty")
	}

	var existing []string
	if err := tx.Model(&models.Ingredient{}).Where("active = ?", true).Pluck("LOWER(name)", &existing).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, n := range existing {
		seen[n] = true
	}

	res := &ImportResult{Created: []models.Ingredient{}, Skipped: []ImportSkip{}}
	for i, row := range rows {
		line := i + 1
		in, err := parseRow(row)
		if err != nil {
			res.Skipped = append(res.Skipped, ImportSkip{Row: line, Name: cell(row, 0), Reason: err.Error()})
			continue
		}
		key := strings.ToLower(in.Name)
		if seen[key] {
			res.Skipped = append(res.Skipped, ImportSkip{Row: line, Name: in.Name, Reason: "already exists"})
			continue
		}

		ing, mv, err := l.CreateIngredient(tx, in, userID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		seen[key] = true
		res.Created = append(res.Created, *ing)
		if mv != nil {
			res.Results = append(res.Results, *mv)
		}
	}
	return res, nil
}

func isHeader(row []string) bool {
	first := strings.ToLower(strings.TrimSpace(cell(row, 0)))
	return first == "name" || first == "ingredient" || first == "nome"
}

func parseRow(row []string) (IngredientInput, error) {
	in := IngredientInput{
		Name:     strings.TrimSpace(cell(row, 0)),
		Unit:     strings.TrimSpace(cell(row, 1)),
		Supplier: strings.TrimSpace(cell(row, 5)),
	}
	if in.Name == "" || in.Unit == "" {
		return in, fmt.Errorf("name and unit are required")
	}

	for col, dst := range map[int]*decimal.Decimal{2: &in.UnitCost, 3: &in.InitialStock, 4: &in.MinimumStock} {
		raw := strings.ReplaceAll(strings.TrimSpace(cell(row, col)), ",", ".")
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return in, fmt.Errorf("invalid %s %q", importColumns[col], cell(row, col))
		}
		*dst = d
	}
	return in, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
