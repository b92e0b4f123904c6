package importer

import (
	"errors"
	"fmt"
)

// ErrValidation indicates the batch as a whole is unusable; nothing was imported.
var ErrValidation = errors.New("import validation failed")

// ErrInvalidNumber indicates a cell that does not hold an acceptable number.
var ErrInvalidNumber = errors.New("invalid number")

// RowError describes one skipped row. Row is the 1-based data row index.
type RowError struct {
	Row   int
	Field Field
	Value string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }
