package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedReport represents the aggregated daily feed data archived to MongoDB and Sheets.
type FeedReport struct {
	Date          time.Time          `bson:"date" json:"date"`
	Sessions      int                `bson:"sessions" json:"sessions"`
	TotalConsumed float64            `bson:"total_consumed" json:"total_consumed"`
	TotalProtein  float64            `bson:"total_protein" json:"total_protein"`
	TotalEnergy   float64            `bson:"total_energy" json:"total_energy"`
	TotalFiber    float64            `bson:"total_fiber" json:"total_fiber"`
	PerFeed       []FeedReportLine   `bson:"per_feed" json:"per_feed"`
	LowStock      []LowStockSnapshot `bson:"low_stock" json:"low_stock"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// FeedReportLine is the consumption of a single feed within a report.
type FeedReportLine struct {
	FeedID   uint    `bson:"feed_id" json:"feed_id"`
	FeedName string  `bson:"feed_name" json:"feed_name"`
	Quantity float64 `bson:"quantity" json:"quantity"`
}

// LowStockSnapshot captures a feed that sits at or under its minimum stock.
type LowStockSnapshot struct {
	FeedStockID uint            `bson:"feed_stock_id" json:"feed_stock_id"`
	FeedName    string          `bson:"feed_name" json:"feed_name"`
	Stock       decimal.Decimal `bson:"-" json:"stock"`
	MinStock    decimal.Decimal `bson:"-" json:"min_stock"`
	StockKg     float64         `bson:"stock_kg" json:"-"`
}
