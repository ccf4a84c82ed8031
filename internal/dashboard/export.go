package dashboard

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const stockSheet = "Stock"

var stockHeader = []any{"Ingredient", "Unit", "Current stock", "Minimum stock", "Unit cost", "Stock value", "Status", "Supplier"}

// WriteXLSX renders the report as a one-sheet workbook with a totals row.
func (r *StockReport) WriteXLSX() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stockSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(stockSheet, "A1", &stockHeader); err != nil {
		return nil, err
	}

	for i, l := range r.Lines {
		row := []any{
			l.Name,
			l.Unit,
			l.CurrentStock.InexactFloat64(),
			l.MinimumStock.InexactFloat64(),
			l.UnitCost.InexactFloat64(),
			l.StockValue.InexactFloat64(),
			string(l.Status),
			l.Supplier,
		}
		if err := f.SetSheetRow(stockSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	total := []any{"Total", "", "", "", "", r.TotalValue.InexactFloat64()}
	if err := f.SetSheetRow(stockSheet, fmt.Sprintf("A%d", len(r.Lines)+2), &total); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(stockSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
