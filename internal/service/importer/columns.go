package importer

import "strings"

// Field is a logical import column.
type Field string

const (
	FieldName     Field = "name"
	FieldStock    Field = "stock"
	FieldMinStock Field = "min_stock"
	FieldPrice    Field = "price"
)

// FieldAliases lists the header spellings accepted for one field, in priority order.
type FieldAliases struct {
	Field   Field
	Aliases []string
}

// DefaultAliases is the header alias table used for inventory uploads.
var DefaultAliases = []FieldAliases{
	{Field: FieldName, Aliases: []string{"medicine_name", "name", "product", "medicine"}},
	{Field: FieldStock, Aliases: []string{"stock", "quantity", "qty"}},
	{Field: FieldMinStock, Aliases: []string{"min_stock", "minimum_stock"}},
	{Field: FieldPrice, Aliases: []string{"price", "mrp", "rate"}},
}

// ColumnMap records which column index holds each logical field.
type ColumnMap map[Field]int

// MapColumns resolves header columns against the alias table. Headers compare
// case-insensitively after trimming and the first alias present wins.
func MapColumns(header []string, aliases []FieldAliases) ColumnMap {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	columns := make(ColumnMap, len(aliases))
	for _, fa := range aliases {
		for _, alias := range fa.Aliases {
			if idx := indexOf(normalized, alias); idx >= 0 {
				columns[fa.Field] = idx
				break
			}
		}
	}
	return columns
}

// Has reports whether the field was found in the header.
func (c ColumnMap) Has(field Field) bool {
	_, ok := c[field]
	return ok
}

// Cell returns the trimmed value of field in row, or "" when the column is absent
// or the row is too short.
func (c ColumnMap) Cell(row []string, field Field) string {
	idx, ok := c[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
