package report

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/otabekdev/restockbot/internal/config"
	"github.com/otabekdev/restockbot/internal/domain/models"
)

// Source column names as the warehouse system exports them. Header cells
// are matched after trimming surrounding whitespace because the export
// pads some of them.
const (
	ColumnSKU               = "Артикул"
	ColumnName              = "Номенклатура"
	ColumnDaysToSellOut     = "Дней на распродажи"
	ColumnEndingStock       = "Остаток на конец"
	ColumnAvgDailySales     = "Средние продажи день"
	ColumnDaysSinceLastSale = "Прошло дней от последней продажи"
)

var requiredColumns = []string{
	ColumnSKU,
	ColumnName,
	ColumnDaysToSellOut,
	ColumnEndingStock,
	ColumnAvgDailySales,
	ColumnDaysSinceLastSale,
}

// Normalizer turns a raw Table into the ordered sequence of StockRow:
// boilerplate rows trimmed, excluded SKUs removed, numeric text cleaned and
// the infinity glyph mapped to the -1 sentinel.
type Normalizer struct {
	cfg config.ReportConfig
}

// NewNormalizer builds a normalizer with the given report configuration.
func NewNormalizer(cfg config.ReportConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize applies the cleaning steps in order. It returns a SchemaError
// when a required column is absent and a DataFormatError when a cell still
// fails numeric coercion after cleaning.
func (n *Normalizer) Normalize(t *Table) ([]models.StockRow, error) {
	cols := make(map[string]int, len(requiredColumns))
	for idx, header := range t.Header {
		cols[strings.TrimSpace(header)] = idx
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &SchemaError{Column: name}
		}
	}

	rows := t.Rows
	if len(rows) <= n.cfg.TrimHeadRows+n.cfg.TrimTailRows {
		return nil, nil
	}
	rows = rows[n.cfg.TrimHeadRows : len(rows)-n.cfg.TrimTailRows]

	out := make([]models.StockRow, 0, len(rows))
	for i, row := range rows {
		// 1-based row number in the source sheet: header row, trimmed
		// boilerplate, then this row.
		sheetRow := 1 + n.cfg.TrimHeadRows + i + 1

		sku := cellAt(row, cols[ColumnSKU])
		if strings.Contains(sku, n.cfg.ExclusionMarker) {
			continue
		}

		daysToSellOut, err := n.cleanInt(cellAt(row, cols[ColumnDaysToSellOut]), sheetRow, ColumnDaysToSellOut)
		if err != nil {
			return nil, err
		}

		endingStock, err := n.cleanInt(cellAt(row, cols[ColumnEndingStock]), sheetRow, ColumnEndingStock)
		if err != nil {
			return nil, err
		}

		avgDailySales, err := n.cleanFloat(cellAt(row, cols[ColumnAvgDailySales]), sheetRow, ColumnAvgDailySales)
		if err != nil {
			return nil, err
		}

		daysSinceLastSale, err := n.cleanInt(cellAt(row, cols[ColumnDaysSinceLastSale]), sheetRow, ColumnDaysSinceLastSale)
		if err != nil {
			return nil, err
		}

		out = append(out, models.StockRow{
			SKU:               sku,
			Name:              cellAt(row, cols[ColumnName]),
			DaysToSellOut:     daysToSellOut,
			EndingStock:       endingStock,
			AvgDailySales:     avgDailySales,
			DaysSinceLastSale: daysSinceLastSale,
		})
	}

	return out, nil
}

// cleanInt strips whitespace (the export groups digits with spaces), maps
// the infinity glyph to the sentinel and blanks to zero, then parses the
// remainder as an integer.
func (n *Normalizer) cleanInt(raw string, row int, column string) (int, error) {
	s := stripSpaces(raw)
	switch s {
	case n.cfg.InfinityGlyph:
		return models.InfinitySentinel, nil
	case "":
		return 0, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &DataFormatError{Row: row, Column: column, Value: raw}
	}
	return v, nil
}

func (n *Normalizer) cleanFloat(raw string, row int, column string) (float64, error) {
	s := stripSpaces(raw)
	switch s {
	case n.cfg.InfinityGlyph:
		return models.InfinitySentinel, nil
	case "":
		return 0, nil
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, &DataFormatError{Row: row, Column: column, Value: raw}
	}
	return v, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
