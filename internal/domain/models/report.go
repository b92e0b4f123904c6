package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyReport represents the aggregated daily inventory data stored in MongoDB.
type DailyReport struct {
	Date            time.Time    `bson:"date" json:"date"`
	TotalProducts   int          `bson:"total_products" json:"total_products"`
	TotalStockValue float64      `bson:"total_stock_value" json:"total_stock_value"`
	LowStockItems   int          `bson:"low_stock_items" json:"low_stock_items"`
	CriticalItems   int          `bson:"critical_items" json:"critical_items"`
	SalesTotal      float64      `bson:"sales_total" json:"sales_total"`
	ItemsSold       int          `bson:"items_sold" json:"items_sold"`
	Alerts          []StockAlert `bson:"alerts" json:"alerts"`
	CreatedAt       time.Time    `bson:"created_at" json:"created_at"`
}

// StockAlert is a record that needs attention in a report.
type StockAlert struct {
	ID       int         `bson:"medicine_id" json:"medicine_id"`
	Name     string      `bson:"name" json:"name"`
	Stock    int         `bson:"stock" json:"stock"`
	MinStock int         `bson:"min_stock" json:"min_stock"`
	Status   StockStatus `bson:"status" json:"status"`
}

// Transaction is one stock movement appended to the transaction log.
type Transaction struct {
	ID             uuid.UUID
	Timestamp      time.Time
	MedicineName   string
	Quantity       int
	Price          decimal.Decimal
	Type           Direction
	RemainingStock int
}

// SalesSummary aggregates the sold transactions of one day.
type SalesSummary struct {
	Date      time.Time
	Total     decimal.Decimal
	ItemsSold int
	Entries   int
}
