package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/otabekdev/restockbot/internal/domain/models"
)

// Output sheet names.
const (
	SheetRecommended = "Recommended Order"
	SheetOverstock   = "Overstock"
	SheetOutOfStock  = "Out Of Stock"
	SheetInTransit   = "In Transit"
)

// MultiplierCell is the single configurable USD multiplier on the
// Out Of Stock sheet, seeded to 1 and meant to be hand-edited.
const MultiplierCell = "F1"

// Emitter lays computed rows into the output workbook. Recommended order
// and deficit quantities are written as plain values so the workbook is
// self-consistent without recalculation; the in-transit lookup, the total
// purchase and the USD value stay live formulas so the operator can fill
// the In Transit sheet and tune the multiplier afterwards.
type Emitter struct{}

// NewEmitter builds an emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Emit renders the four-sheet workbook and returns its bytes.
func (e *Emitter) Emit(rows []models.ComputedRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRecommended); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetOverstock, SheetOutOfStock, SheetInTransit} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headers := map[string][]interface{}{
		SheetRecommended: {"SKU", "Name", "Collection", "Recommended Order", "In Transit", "Total Purchase"},
		SheetOverstock:   {"SKU", "Name", "Collection", "Overstock"},
		SheetOutOfStock:  {"SKU", "Name", "Deficit", "USD Value"},
		SheetInTransit:   {"SKU", "Name", "In Transit"},
	}
	for sheet, row := range headers {
		if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
			return nil, fmt.Errorf("write header of %s: %w", sheet, err)
		}
	}

	if err := f.SetCellValue(SheetOutOfStock, MultiplierCell, 1); err != nil {
		return nil, fmt.Errorf("seed multiplier cell: %w", err)
	}

	for i, row := range rows {
		r := i + 2

		cells := []interface{}{row.SKU, row.Name, row.CollectionTag, row.Outcome.RecommendedOrder()}
		if err := f.SetSheetRow(SheetRecommended, fmt.Sprintf("A%d", r), &cells); err != nil {
			return nil, fmt.Errorf("write %s row %d: %w", SheetRecommended, r, err)
		}
		lookup := fmt.Sprintf("IFERROR(VLOOKUP(A%d,'%s'!A:C,3,FALSE),0)", r, SheetInTransit)
		if err := f.SetCellFormula(SheetRecommended, fmt.Sprintf("E%d", r), lookup); err != nil {
			return nil, fmt.Errorf("write in-transit lookup row %d: %w", r, err)
		}
		total := fmt.Sprintf("MAX(D%d-E%d,0)", r, r)
		if err := f.SetCellFormula(SheetRecommended, fmt.Sprintf("F%d", r), total); err != nil {
			return nil, fmt.Errorf("write total purchase row %d: %w", r, err)
		}

		cells = []interface{}{row.SKU, row.Name, row.CollectionTag, row.Outcome.OverstockQty()}
		if err := f.SetSheetRow(SheetOverstock, fmt.Sprintf("A%d", r), &cells); err != nil {
			return nil, fmt.Errorf("write %s row %d: %w", SheetOverstock, r, err)
		}

		cells = []interface{}{row.SKU, row.Name, row.OutOfStockDeficit}
		if err := f.SetSheetRow(SheetOutOfStock, fmt.Sprintf("A%d", r), &cells); err != nil {
			return nil, fmt.Errorf("write %s row %d: %w", SheetOutOfStock, r, err)
		}
		usd := fmt.Sprintf("C%d*$F$1", r)
		if err := f.SetCellFormula(SheetOutOfStock, fmt.Sprintf("D%d", r), usd); err != nil {
			return nil, fmt.Errorf("write usd formula row %d: %w", r, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
