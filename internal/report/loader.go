package report

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"
)

// Table is a rectangular view over the first sheet of an uploaded report.
// Header holds the column-name row; Rows hold everything below it, still
// uncleaned. Rows may be ragged where trailing cells were empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Load parses raw spreadsheet bytes into a Table. It performs no semantic
// validation of column names or row count; that is the normalizer's job.
func Load(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	if len(rows) == 0 {
		return nil, &LoadError{Err: errors.New("sheet is empty")}
	}

	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}
