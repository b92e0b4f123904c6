package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MedicineRecord is a single stocked item tracked by the ledger.
type MedicineRecord struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	SearchName string          `json:"search_name"`
	Stock      int             `json:"stock"`
	MinStock   int             `json:"min_stock"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewMedicineRecord validates the supplied fields and builds a record with a derived search name.
func NewMedicineRecord(id int, name string, stock, minStock int, price decimal.Decimal, now time.Time) (MedicineRecord, error) {
	name = strings.TrimSpace(name)
	switch {
	case id <= 0:
		return MedicineRecord{}, errors.New("record id must be positive")
	case name == "":
		return MedicineRecord{}, errors.New("record name must not be empty")
	case stock < 0:
		return MedicineRecord{}, errors.New("stock must not be negative")
	case price.IsNegative():
		return MedicineRecord{}, errors.New("price must not be negative")
	}

	return MedicineRecord{
		ID:         id,
		Name:       name,
		SearchName: NormalizeName(name),
		Stock:      stock,
		MinStock:   minStock,
		Price:      price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// StockValue is stock multiplied by unit price.
func (r MedicineRecord) StockValue() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(int64(r.Stock)))
}

// NormalizeName produces the matching key for a display name or query.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Direction tells the ledger which way a stock adjustment moves.
type Direction string

const (
	DirectionSold   Direction = "sold"
	DirectionBought Direction = "bought"
)

// Valid reports whether d is a known adjustment direction.
func (d Direction) Valid() bool {
	return d == DirectionSold || d == DirectionBought
}

// Snapshot is the durable form of the whole ledger.
type Snapshot struct {
	UpdatedAt time.Time        `json:"updated_at"`
	Medicines []MedicineRecord `json:"medicines"`
}
