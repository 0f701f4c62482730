package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// FeedType groups feeds (forage, concentrate, supplement...).
type FeedType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the legacy table name.
func (FeedType) TableName() string { return "feed_type" }

// Feed describes one feed with its per-kg nutrient densities and restock threshold.
type Feed struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	TypeID    uint            `gorm:"not null;index" json:"type_id"`
	Name      string          `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Protein   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"protein"`
	Energy    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"energy"`
	Fiber     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"fiber"`
	MinStock  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"min_stock"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Type  *FeedType  `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Stock *FeedStock `gorm:"foreignKey:FeedID" json:"stock,omitempty"`
}

// TableName keeps the legacy table name.
func (Feed) TableName() string { return "feed" }

// FeedStock is the quantity on hand (kg) of one feed.
type FeedStock struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	FeedID    uint            `gorm:"not null;uniqueIndex" json:"feed_id"`
	Stock     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Feed *Feed `gorm:"foreignKey:FeedID" json:"feed,omitempty"`
}

// TableName keeps the legacy table name.
func (FeedStock) TableName() string { return "feed_stock" }

// BelowThreshold reports whether the stock reached the feed's minimum.
func (s FeedStock) BelowThreshold(minStock decimal.Decimal) bool {
	return s.Stock.LessThanOrEqual(minStock)
}

// QuantityPlaces is the scale of every kg and nutrient column.
const QuantityPlaces = 2

// MaxQuantity is the smallest magnitude a decimal(10,2) column cannot hold.
var MaxQuantity = decimal.New(1, 8)

var (
	ErrQuantityPrecision = errors.New("quantity has more than 2 decimal places")
	ErrQuantityRange     = errors.New("quantity does not fit decimal(10,2)")
)

// CheckQuantity returns an error when q would be rounded or rejected by a
// decimal(10,2) column.
func CheckQuantity(q decimal.Decimal) error {
	if !q.Equal(q.Round(QuantityPlaces)) {
		return ErrQuantityPrecision
	}
	if q.Abs().GreaterThanOrEqual(MaxQuantity) {
		return ErrQuantityRange
	}
	return nil
}

// MovementReason labels a stock movement.
type MovementReason string

const (
	MovementRestock     MovementReason = "restock"
	MovementAdjustment  MovementReason = "adjustment"
	MovementConsumption MovementReason = "consumption"
	MovementReturn      MovementReason = "return"
)

// FeedStockMovement is an append-only record of every change applied to a FeedStock row.
type FeedStockMovement struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	FeedStockID     uint            `gorm:"not null;index" json:"feed_stock_id"`
	FeedID          uint            `gorm:"not null;index" json:"feed_id"`
	Reason          MovementReason  `gorm:"size:20;not null" json:"reason"`
	Delta           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delta"`
	StockBefore     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"stock_before"`
	StockAfter      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"stock_after"`
	DailyFeedItemID *uint           `json:"daily_feed_item_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName overrides GORM's pluralisation.
func (FeedStockMovement) TableName() string { return "feed_stock_movements" }
