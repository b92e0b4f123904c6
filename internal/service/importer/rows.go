package importer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// parsedRow is one data row converted to typed values.
type parsedRow struct {
	name        string
	stock       int
	minStock    int
	hasMinStock bool
	price       decimal.Decimal
	hasPrice    bool
}

// parseRow converts a data row. ok is false for rows without a name, which are
// skipped silently. Blank numeric cells count as absent.
func parseRow(columns ColumnMap, row []string, index int) (parsed parsedRow, ok bool, rowErr *RowError) {
	parsed.name = columns.Cell(row, FieldName)
	if parsed.name == "" {
		return parsedRow{}, false, nil
	}

	if raw := columns.Cell(row, FieldStock); raw != "" {
		v, err := parseCount(raw)
		if err != nil {
			return parsedRow{}, false, &RowError{Row: index, Field: FieldStock, Value: raw, Err: err}
		}
		parsed.stock = v
	}

	if raw := columns.Cell(row, FieldMinStock); raw != "" {
		v, err := parseCount(raw)
		if err != nil {
			return parsedRow{}, false, &RowError{Row: index, Field: FieldMinStock, Value: raw, Err: err}
		}
		parsed.minStock, parsed.hasMinStock = v, true
	}

	if raw := columns.Cell(row, FieldPrice); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return parsedRow{}, false, &RowError{Row: index, Field: FieldPrice, Value: raw, Err: ErrInvalidNumber}
		}
		if v.IsNegative() {
			return parsedRow{}, false, &RowError{Row: index, Field: FieldPrice, Value: raw, Err: fmt.Errorf("%w: negative", ErrInvalidNumber)}
		}
		parsed.price, parsed.hasPrice = v, true
	}

	return parsed, true, nil
}

// parseCount accepts non-negative integers, including integral decimals such as
// "12.0" that spreadsheets produce for numeric cells.
func parseCount(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		d, derr := decimal.NewFromString(raw)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return 0, ErrInvalidNumber
		}
		if d.GreaterThan(decimal.NewFromInt(math.MaxInt)) || d.LessThan(decimal.NewFromInt(math.MinInt)) {
			return 0, fmt.Errorf("%w: out of range", ErrInvalidNumber)
		}
		v = int(d.IntPart())
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative", ErrInvalidNumber)
	}
	return v, nil
}
