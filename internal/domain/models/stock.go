package models

import "github.com/shopspring/decimal"

// StockStatus is the ordered category derived from a record's stock level.
type StockStatus string

const (
	StatusCritical StockStatus = "critical"
	StatusLow      StockStatus = "low"
	StatusWarning  StockStatus = "warning"
	StatusOK       StockStatus = "ok"
)

// Thresholds are the process-wide limits used to classify stock levels.
type Thresholds struct {
	Critical      int
	LowMultiplier decimal.Decimal
}

// Classify maps a stock level to its status category.
func Classify(stock, minStock, critical int, lowMultiplier decimal.Decimal) StockStatus {
	switch {
	case stock <= critical:
		return StatusCritical
	case stock <= minStock:
		return StatusLow
	case decimal.NewFromInt(int64(stock)).LessThanOrEqual(WarningLevel(minStock, lowMultiplier)):
		return StatusWarning
	default:
		return StatusOK
	}
}

// WarningLevel is the stock level at or below which a record needs restocking soon.
func WarningLevel(minStock int, lowMultiplier decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(minStock)).Mul(lowMultiplier)
}

// Classify applies the thresholds to a record.
func (t Thresholds) Classify(r MedicineRecord) StockStatus {
	return Classify(r.Stock, r.MinStock, t.Critical, t.LowMultiplier)
}

// NeedsAttention reports whether the status should be surfaced to an operator.
func (s StockStatus) NeedsAttention() bool {
	return s == StatusCritical || s == StatusLow
}
