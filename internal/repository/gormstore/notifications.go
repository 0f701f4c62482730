package gormstore

import (
	"context"
	"fmt"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

func (q queries) ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	db := q.db.WithContext(ctx)
	if filter.UnreadOnly {
		db = db.Where("is_read = ?", false)
	}
	if filter.FeedStockOnly {
		db = db.Where("feed_stock_id IS NOT NULL")
	}

	var notifications []models.Notification
	if err := db.Order("date DESC").Order("id DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (q queries) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := q.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &notification, nil
}

// FindUnreadStockNotification returns the unread warning attached to a stock row, if any.
func (q queries) FindUnreadStockNotification(ctx context.Context, feedStockID uint) (*models.Notification, error) {
	var notification models.Notification
	err := q.db.WithContext(ctx).
		Where("feed_stock_id = ? AND is_read = ?", feedStockID, false).
		Order("id ASC").
		First(&notification).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &notification, nil
}

// CreateNotification inserts a notification.
func (t *Tx) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := t.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkNotificationRead flags one notification as read.
func (t *Tx) MarkNotificationRead(ctx context.Context, id uint) (bool, error) {
	res := t.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark notification read: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkAllNotificationsRead flags every unread notification and returns how many changed.
func (t *Tx) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	res := t.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("is_read = ?", false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteNotification removes a notification.
func (t *Tx) DeleteNotification(ctx context.Context, id uint) (bool, error) {
	res := t.db.WithContext(ctx).Delete(&models.Notification{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete notification: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
