package gormstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

func (q queries) ListFeedTypes(ctx context.Context) ([]models.FeedType, error) {
	var types []models.FeedType
	if err := q.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list feed types: %w", err)
	}
	return types, nil
}

func (q queries) GetFeedType(ctx context.Context, id uint) (*models.FeedType, error) {
	var feedType models.FeedType
	if err := q.db.WithContext(ctx).First(&feedType, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &feedType, nil
}

func (q queries) FindFeedTypeByName(ctx context.Context, name string) (*models.FeedType, error) {
	var feedType models.FeedType
	if err := q.db.WithContext(ctx).Where("name = ?", name).First(&feedType).Error; err != nil {
		return nil, notFound(err)
	}
	return &feedType, nil
}

func (q queries) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	err := q.db.WithContext(ctx).
		Preload("Type").
		Preload("Stock").
		Order("name ASC").
		Find(&feeds).Error
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

func (q queries) GetFeed(ctx context.Context, id uint) (*models.Feed, error) {
	var feed models.Feed
	if err := q.db.WithContext(ctx).Preload("Type").Preload("Stock").First(&feed, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &feed, nil
}

func (q queries) FindFeedByName(ctx context.Context, name string) (*models.Feed, error) {
	var feed models.Feed
	if err := q.db.WithContext(ctx).Where("name = ?", name).First(&feed).Error; err != nil {
		return nil, notFound(err)
	}
	return &feed, nil
}

func (q queries) GetFeedsByIDs(ctx context.Context, ids []uint) ([]models.Feed, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var feeds []models.Feed
	if err := q.db.WithContext(ctx).Where("id IN ?", ids).Find(&feeds).Error; err != nil {
		return nil, fmt.Errorf("get feeds by ids: %w", err)
	}
	return feeds, nil
}

// ListFeedStocks returns stock rows whose feed still exists, with the feed preloaded.
func (q queries) ListFeedStocks(ctx context.Context) ([]models.FeedStock, error) {
	var stocks []models.FeedStock
	if err := q.db.WithContext(ctx).Preload("Feed").Order("id ASC").Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("list feed stocks: %w", err)
	}

	out := stocks[:0]
	for _, s := range stocks {
		if s.Feed != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (q queries) GetFeedStock(ctx context.Context, id uint) (*models.FeedStock, error) {
	var stock models.FeedStock
	if err := q.db.WithContext(ctx).Preload("Feed").First(&stock, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

func (q queries) GetFeedStockByFeed(ctx context.Context, feedID uint) (*models.FeedStock, error) {
	var stock models.FeedStock
	if err := q.db.WithContext(ctx).Preload("Feed").Where("feed_id = ?", feedID).First(&stock).Error; err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

func (q queries) ListMovements(ctx context.Context, feedID uint) ([]models.FeedStockMovement, error) {
	var movements []models.FeedStockMovement
	err := q.db.WithContext(ctx).
		Where("feed_id = ?", feedID).
		Order("id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// CreateFeedType inserts a feed type.
func (t *Tx) CreateFeedType(ctx context.Context, feedType *models.FeedType) error {
	if err := t.db.WithContext(ctx).Create(feedType).Error; err != nil {
		return fmt.Errorf("create feed type: %w", err)
	}
	return nil
}

// SaveFeedType persists every column of an existing feed type.
func (t *Tx) SaveFeedType(ctx context.Context, feedType *models.FeedType) error {
	if err := t.db.WithContext(ctx).Save(feedType).Error; err != nil {
		return fmt.Errorf("save feed type: %w", err)
	}
	return nil
}

// DeleteFeedType removes a feed type and reports whether a row was deleted.
func (t *Tx) DeleteFeedType(ctx context.Context, id uint) (bool, error) {
	res := t.db.WithContext(ctx).Delete(&models.FeedType{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete feed type: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountFeedsOfType counts feeds attached to a type.
func (t *Tx) CountFeedsOfType(ctx context.Context, typeID uint) (int64, error) {
	var count int64
	if err := t.db.WithContext(ctx).Model(&models.Feed{}).Where("type_id = ?", typeID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count feeds of type: %w", err)
	}
	return count, nil
}

// CreateFeed inserts a feed without its associations.
func (t *Tx) CreateFeed(ctx context.Context, feed *models.Feed) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(feed).Error; err != nil {
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

// SaveFeed persists every column of an existing feed.
func (t *Tx) SaveFeed(ctx context.Context, feed *models.Feed) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Save(feed).Error; err != nil {
		return fmt.Errorf("save feed: %w", err)
	}
	return nil
}

// DeleteFeed removes a feed together with its stock row.
func (t *Tx) DeleteFeed(ctx context.Context, id uint) (bool, error) {
	if err := t.db.WithContext(ctx).Where("feed_id = ?", id).Delete(&models.FeedStock{}).Error; err != nil {
		return false, fmt.Errorf("delete feed stock: %w", err)
	}
	res := t.db.WithContext(ctx).Delete(&models.Feed{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete feed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountItemsOfFeed counts ledger entries referencing a feed.
func (t *Tx) CountItemsOfFeed(ctx context.Context, feedID uint) (int64, error) {
	var count int64
	if err := t.db.WithContext(ctx).Model(&models.DailyFeedItem{}).Where("feed_id = ?", feedID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count items of feed: %w", err)
	}
	return count, nil
}

// LockFeedStockByFeed reads the stock row of a feed with SELECT ... FOR UPDATE.
// SQLite ignores the locking clause; its transactions are already serialised.
func (t *Tx) LockFeedStockByFeed(ctx context.Context, feedID uint) (*models.FeedStock, error) {
	var stock models.FeedStock
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("feed_id = ?", feedID).
		First(&stock).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

// LockFeedStock reads a stock row by id with SELECT ... FOR UPDATE.
func (t *Tx) LockFeedStock(ctx context.Context, id uint) (*models.FeedStock, error) {
	var stock models.FeedStock
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&stock, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stock, nil
}

// CreateFeedStock inserts a stock row.
func (t *Tx) CreateFeedStock(ctx context.Context, stock *models.FeedStock) error {
	if err := t.db.WithContext(ctx).Omit(clause.Associations).Create(stock).Error; err != nil {
		return fmt.Errorf("create feed stock: %w", err)
	}
	return nil
}

// SetStockLevel writes the new level of a locked stock row and records the movement.
func (t *Tx) SetStockLevel(ctx context.Context, stock *models.FeedStock, level decimal.Decimal, reason models.MovementReason, itemID *uint) error {
	if err := models.CheckQuantity(level); err != nil {
		return fmt.Errorf("stock level %s of feed stock %d: %w", level.String(), stock.ID, err)
	}
	before := stock.Stock
	err := t.db.WithContext(ctx).
		Model(&models.FeedStock{}).
		Where("id = ?", stock.ID).
		Update("stock", level).Error
	if err != nil {
		return fmt.Errorf("update feed stock %d: %w", stock.ID, err)
	}
	stock.Stock = level

	movement := &models.FeedStockMovement{
		FeedStockID:     stock.ID,
		FeedID:          stock.FeedID,
		Reason:          reason,
		Delta:           level.Sub(before),
		StockBefore:     before,
		StockAfter:      level,
		DailyFeedItemID: itemID,
	}
	if err := t.db.WithContext(ctx).Create(movement).Error; err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}
