package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

func preloadSession(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Feed").
		Preload("Nutrients")
}

func (q queries) GetDailyFeed(ctx context.Context, id uint) (*models.DailyFeed, error) {
	var session models.DailyFeed
	if err := preloadSession(q.db.WithContext(ctx)).First(&session, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (q queries) FindDailyFeed(ctx context.Context, cowID uint, date, session string) (*models.DailyFeed, error) {
	var found models.DailyFeed
	err := q.db.WithContext(ctx).
		Where("cow_id = ? AND date = ? AND session = ?", cowID, date, session).
		First(&found).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &found, nil
}

func (q queries) ListDailyFeeds(ctx context.Context, filter DailyFeedFilter) ([]models.DailyFeed, error) {
	db := preloadSession(q.db.WithContext(ctx))
	if filter.FarmerID != 0 {
		db = db.Where("farmer_id = ?", filter.FarmerID)
	}
	if filter.CowID != 0 {
		db = db.Where("cow_id = ?", filter.CowID)
	}
	if filter.Date != "" {
		db = db.Where("date = ?", filter.Date)
	}
	if filter.Session != "" {
		db = db.Where("session = ?", filter.Session)
	}
	if filter.StartDate != "" {
		db = db.Where("date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		db = db.Where("date <= ?", filter.EndDate)
	}

	var sessions []models.DailyFeed
	if err := db.Order("date DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list daily feeds: %w", err)
	}
	return sessions, nil
}

func (q queries) GetItem(ctx context.Context, id uint) (*models.DailyFeedItem, error) {
	var item models.DailyFeedItem
	if err := q.db.WithContext(ctx).Preload("Feed").First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (q queries) ListItems(ctx context.Context, filter ItemFilter) ([]models.DailyFeedItem, error) {
	db := q.db.WithContext(ctx).Preload("Feed")
	if filter.DailyFeedID != 0 {
		db = db.Where("daily_feed_id = ?", filter.DailyFeedID)
	}
	if filter.FeedID != 0 {
		db = db.Where("feed_id = ?", filter.FeedID)
	}

	var items []models.DailyFeedItem
	if err := db.Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list daily feed items: %w", err)
	}
	return items, nil
}

func (q queries) ItemsForSession(ctx context.Context, dailyFeedID uint) ([]models.DailyFeedItem, error) {
	return q.ListItems(ctx, ItemFilter{DailyFeedID: dailyFeedID})
}

// FeedUsage sums item quantities per date and feed within the inclusive date range.
func (q queries) FeedUsage(ctx context.Context, startDate, endDate string) ([]models.FeedUsage, error) {
	db := q.db.WithContext(ctx).
		Table("daily_feed_items AS i").
		Select("d.date AS date, i.feed_id AS feed_id, f.name AS feed_name, SUM(i.quantity) AS quantity").
		Joins("JOIN daily_feed_complete d ON d.id = i.daily_feed_id").
		Joins("JOIN feed f ON f.id = i.feed_id")
	if startDate != "" {
		db = db.Where("d.date >= ?", startDate)
	}
	if endDate != "" {
		db = db.Where("d.date <= ?", endDate)
	}

	var usage []models.FeedUsage
	err := db.Group("d.date, i.feed_id, f.name").
		Order("d.date ASC").
		Order("f.name ASC").
		Scan(&usage).Error
	if err != nil {
		return nil, fmt.Errorf("feed usage: %w", err)
	}
	return usage, nil
}

func (q queries) GetNutrients(ctx context.Context, dailyFeedID uint) (*models.DailyFeedNutrients, error) {
	var nutrients models.DailyFeedNutrients
	if err := q.db.WithContext(ctx).Where("daily_feed_id = ?", dailyFeedID).First(&nutrients).Error; err != nil {
		return nil, notFound(err)
	}
	return &nutrients, nil
}

func (q queries) ListNutrients(ctx context.Context) ([]models.DailyFeedNutrients, error) {
	var nutrients []models.DailyFeedNutrients
	if err := q.db.WithContext(ctx).Order("daily_feed_id ASC").Find(&nutrients).Error; err != nil {
		return nil, fmt.Errorf("list nutrients: %w", err)
	}
	return nutrients, nil
}

// CreateDailyFeed inserts a session without items.
func (t *Tx) CreateDailyFeed(ctx context.Context, session *models.DailyFeed) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error; err != nil {
		return fmt.Errorf("create daily feed: %w", err)
	}
	return nil
}

// SaveDailyFeed persists the session columns.
func (t *Tx) SaveDailyFeed(ctx context.Context, session *models.DailyFeed) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error; err != nil {
		return fmt.Errorf("save daily feed: %w", err)
	}
	return nil
}

// LockDailyFeed reads a session row with SELECT ... FOR UPDATE.
func (t *Tx) LockDailyFeed(ctx context.Context, id uint) (*models.DailyFeed, error) {
	var session models.DailyFeed
	if err := t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// DeleteDailyFeed removes a session and its nutrient row. Items must be removed first.
func (t *Tx) DeleteDailyFeed(ctx context.Context, id uint) error {
	if err := t.db.WithContext(ctx).Where("daily_feed_id = ?", id).Delete(&models.DailyFeedNutrients{}).Error; err != nil {
		return fmt.Errorf("delete nutrients: %w", err)
	}
	if err := t.db.WithContext(ctx).Delete(&models.DailyFeed{}, id).Error; err != nil {
		return fmt.Errorf("delete daily feed: %w", err)
	}
	return nil
}

// LockItem reads a ledger entry with SELECT ... FOR UPDATE.
func (t *Tx) LockItem(ctx context.Context, id uint) (*models.DailyFeedItem, error) {
	var item models.DailyFeedItem
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Feed").
		First(&item, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// CreateItem inserts a ledger entry.
func (t *Tx) CreateItem(ctx context.Context, item *models.DailyFeedItem) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return fmt.Errorf("create daily feed item: %w", err)
	}
	return nil
}

// UpdateItemQuantity changes the quantity of a ledger entry.
func (t *Tx) UpdateItemQuantity(ctx context.Context, item *models.DailyFeedItem) error {
	err := t.db.WithContext(ctx).
		Model(&models.DailyFeedItem{}).
		Where("id = ?", item.ID).
		Update("quantity", item.Quantity).Error
	if err != nil {
		return fmt.Errorf("update daily feed item %d: %w", item.ID, err)
	}
	return nil
}

// DeleteItem removes a ledger entry.
func (t *Tx) DeleteItem(ctx context.Context, id uint) error {
	if err := t.db.WithContext(ctx).Delete(&models.DailyFeedItem{}, id).Error; err != nil {
		return fmt.Errorf("delete daily feed item %d: %w", id, err)
	}
	return nil
}

// UpsertNutrients updates the nutrient row of a session or inserts it.
func (t *Tx) UpsertNutrients(ctx context.Context, nutrients *models.DailyFeedNutrients) error {
	existing, err := t.GetNutrients(ctx, nutrients.DailyFeedID)
	switch {
	case err == nil:
		nutrients.ID = existing.ID
		nutrients.CreatedAt = existing.CreatedAt
		if err := t.db.WithContext(ctx).Save(nutrients).Error; err != nil {
			return fmt.Errorf("update nutrients: %w", err)
		}
	case errors.Is(err, ErrNotFound):
		if err := t.db.WithContext(ctx).Create(nutrients).Error; err != nil {
			return fmt.Errorf("insert nutrients: %w", err)
		}
	default:
		return fmt.Errorf("load nutrients: %w", err)
	}
	return nil
}
