package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType classifies notifications.
type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is an in-app message, optionally tied to a feed stock.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	FeedStockID *uint            `gorm:"index:idx_notifications_stock_unread" json:"feed_stock_id,omitempty"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Type        NotificationType `gorm:"size:50;not null" json:"type"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notifications_stock_unread" json:"is_read"`
	Date        time.Time        `gorm:"not null" json:"date"`
}

// TableName keeps the legacy table name.
func (Notification) TableName() string { return "notifications" }

// LowStockMessage renders the warning sent when a feed reaches its threshold.
func LowStockMessage(feedName string, stock decimal.Decimal) string {
	return fmt.Sprintf("Stok %s tinggal %skg, silahkan tambah stok", feedName, stock.String())
}
