package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesSummary aggregates revenue over a date range and status set
type SalesSummary struct {
	Revenue       decimal.Decimal `db:"revenue" json:"revenue"`
	OrderCount    int             `db:"order_count" json:"order_count"`
	AverageBasket decimal.Decimal `json:"average_basket"`
}

// DailySales is the revenue aggregate for one calendar day
type DailySales struct {
	Day        time.Time       `db:"day" json:"day"`
	Revenue    decimal.Decimal `db:"revenue" json:"revenue"`
	OrderCount int             `db:"order_count" json:"order_count"`
}

// TopProduct is one entry in the best-sellers ranking
type TopProduct struct {
	ProductID    int64           `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	QuantitySold int             `db:"quantity_sold" json:"quantity_sold"`
	Revenue      decimal.Decimal `db:"revenue" json:"revenue"`
}

// StockDashboard summarizes the current stock situation across the catalog
type StockDashboard struct {
	TotalProducts   int             `db:"total_products" json:"total_products"`
	InStockProducts int             `db:"in_stock_products" json:"in_stock_products"`
	OutOfStock      int             `db:"out_of_stock" json:"out_of_stock"`
	LowStock        int             `db:"low_stock" json:"low_stock"`
	StockValue      decimal.Decimal `db:"stock_value" json:"stock_value"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
