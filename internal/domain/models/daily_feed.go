package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxFeedTypesPerSession caps the distinct feeds a single session can hold.
const MaxFeedTypesPerSession = 3

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

var sessionLabels = map[string]string{
	"pagi":    "Pagi",
	"siang":   "Siang",
	"sore":    "Sore",
	"morning": "Pagi",
	"noon":    "Siang",
	"evening": "Sore",
}

// NormalizeSession maps a session label to its canonical form.
func NormalizeSession(label string) (string, bool) {
	canonical, ok := sessionLabels[strings.ToLower(strings.TrimSpace(label))]
	return canonical, ok
}

// DailyFeed is one feeding session of a cow.
type DailyFeed struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FarmerID  uint      `gorm:"not null;index" json:"farmer_id"`
	CowID     uint      `gorm:"not null;uniqueIndex:idx_daily_feed_cow_date_session" json:"cow_id"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_daily_feed_cow_date_session" json:"date"`
	Session   string    `gorm:"size:50;not null;uniqueIndex:idx_daily_feed_cow_date_session" json:"session"`
	Weather   string    `gorm:"size:50" json:"weather"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items     []DailyFeedItem     `gorm:"foreignKey:DailyFeedID" json:"feed_items"`
	Nutrients *DailyFeedNutrients `gorm:"foreignKey:DailyFeedID" json:"nutrients,omitempty"`
}

// TableName keeps the legacy table name.
func (DailyFeed) TableName() string { return "daily_feed_complete" }

// DailyFeedItem is a ledger entry: its existence implies the quantity was taken out of stock.
type DailyFeedItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	DailyFeedID uint            `gorm:"not null;index" json:"daily_feed_id"`
	FeedID      uint            `gorm:"not null;index" json:"feed_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`

	Feed *Feed `gorm:"foreignKey:FeedID" json:"feed,omitempty"`
}

// TableName keeps the legacy table name.
func (DailyFeedItem) TableName() string { return "daily_feed_items" }

// DailyFeedNutrients caches the nutrient totals of a session.
type DailyFeedNutrients struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	DailyFeedID  uint            `gorm:"not null;uniqueIndex" json:"daily_feed_id"`
	TotalProtein decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_protein"`
	TotalEnergy  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_energy"`
	TotalFiber   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_fiber"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName keeps the legacy table name.
func (DailyFeedNutrients) TableName() string { return "daily_feed_nutrients" }

// FeedUsage is the total quantity of one feed used on one date.
type FeedUsage struct {
	Date     string          `json:"date"`
	FeedID   uint            `json:"feed_id"`
	FeedName string          `json:"feed_name"`
	Quantity decimal.Decimal `json:"quantity_kg"`
}

// DailyUsage groups FeedUsage rows by date.
type DailyUsage struct {
	Date  string      `json:"date"`
	Feeds []FeedUsage `json:"feeds"`
}
