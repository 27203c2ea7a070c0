package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/otabekdev/restockbot/internal/domain/models"
)

func TestProcessEndToEnd(t *testing.T) {
	p := NewProcessor(testReportConfig(), nil)

	table := &Table{
		Header: testHeader,
		Rows: wrapRows(
			[]string{"FP-001", "Плитка GRN 445", "10", "100", "5", "2"},
			[]string{"FP-002-Н", "Образец", "1", "1", "1", "1"},
			[]string{"FP-003", "Панель", "∞", "30", "0,5", "60"},
		),
	}

	payload, err := p.Process(table, models.Parameters{HorizonDays: 30, AdjustmentPercentage: 1})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetRecommended)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Excluded SKU never reaches any emitted sheet.
	for _, row := range rows[1:] {
		assert.NotEqual(t, "FP-002-Н", row[0])
	}

	assert.Equal(t, "FP-001", rows[1][0])
	assert.Equal(t, "GRN", rows[1][2])
	// periodDemand 150 minus ending stock 100.
	assert.Equal(t, "50", rows[1][3])

	overstock, err := f.GetRows(SheetOverstock)
	require.NoError(t, err)
	require.Len(t, overstock, 3)
	// Infinity sentinel classifies as overstock: 30 - 0.5*30.
	assert.Equal(t, "15", overstock[2][3])
}

func TestProcessSurfacesNormalizationErrors(t *testing.T) {
	p := NewProcessor(testReportConfig(), nil)

	table := &Table{
		Header: []string{"Артикул", "Номенклатура"},
		Rows:   wrapRows([]string{"FP-001", "Плитка"}),
	}

	_, err := p.Process(table, models.Parameters{HorizonDays: 30})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
