package gormstore

import (
	"context"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

// Reader lists the non-locking queries shared by Store and Tx.
type Reader interface {
	ListFeedTypes(ctx context.Context) ([]models.FeedType, error)
	GetFeedType(ctx context.Context, id uint) (*models.FeedType, error)
	FindFeedTypeByName(ctx context.Context, name string) (*models.FeedType, error)

	ListFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeed(ctx context.Context, id uint) (*models.Feed, error)
	FindFeedByName(ctx context.Context, name string) (*models.Feed, error)
	GetFeedsByIDs(ctx context.Context, ids []uint) ([]models.Feed, error)

	ListFeedStocks(ctx context.Context) ([]models.FeedStock, error)
	GetFeedStock(ctx context.Context, id uint) (*models.FeedStock, error)
	GetFeedStockByFeed(ctx context.Context, feedID uint) (*models.FeedStock, error)
	ListMovements(ctx context.Context, feedID uint) ([]models.FeedStockMovement, error)

	GetDailyFeed(ctx context.Context, id uint) (*models.DailyFeed, error)
	FindDailyFeed(ctx context.Context, cowID uint, date, session string) (*models.DailyFeed, error)
	ListDailyFeeds(ctx context.Context, filter DailyFeedFilter) ([]models.DailyFeed, error)

	GetItem(ctx context.Context, id uint) (*models.DailyFeedItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]models.DailyFeedItem, error)
	ItemsForSession(ctx context.Context, dailyFeedID uint) ([]models.DailyFeedItem, error)
	FeedUsage(ctx context.Context, startDate, endDate string) ([]models.FeedUsage, error)

	GetNutrients(ctx context.Context, dailyFeedID uint) (*models.DailyFeedNutrients, error)
	ListNutrients(ctx context.Context) ([]models.DailyFeedNutrients, error)

	ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	FindUnreadStockNotification(ctx context.Context, feedStockID uint) (*models.Notification, error)
}

// DailyFeedFilter narrows ListDailyFeeds. Zero values are ignored.
type DailyFeedFilter struct {
	FarmerID  uint
	CowID     uint
	Date      string
	Session   string
	StartDate string
	EndDate   string
}

// ItemFilter narrows ListItems. Zero values are ignored.
type ItemFilter struct {
	DailyFeedID uint
	FeedID      uint
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	UnreadOnly    bool
	FeedStockOnly bool
}

var (
	_ Repository = (*Store)(nil)
	_ Reader     = (*Tx)(nil)
)
