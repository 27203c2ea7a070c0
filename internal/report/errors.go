package report

import "fmt"

// LoadError indicates the uploaded payload could not be parsed as a
// spreadsheet. It is recoverable: the operator can resend a file.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("parse stock report: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SchemaError indicates a required column is absent from the report.
// Retrying with the same file cannot succeed, so it terminates the session.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("stock report is missing required column %q", e.Column)
}

// DataFormatError indicates a cell still failed integer coercion after
// cleaning. Row is the 1-based row number in the source sheet.
type DataFormatError struct {
	Row    int
	Column string
	Value  string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("stock report row %d column %q: cannot parse %q as a number", e.Row, e.Column, e.Value)
}
