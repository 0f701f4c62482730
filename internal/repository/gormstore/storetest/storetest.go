// Package storetest opens migrated in-memory stores and seeds fixtures for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
)

// New returns a migrated store backed by a private in-memory SQLite database.
func New(t *testing.T) *gormstore.Store {
	t.Helper()

	dsn := "file:feed_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the shared-cache database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	store := gormstore.New(db, nil)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Dec parses a decimal literal and fails the test on error.
func Dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

// FeedSpec describes a feed fixture.
type FeedSpec struct {
	Name     string
	Protein  string
	Energy   string
	Fiber    string
	MinStock string
	Stock    string
}

// SeedFeed inserts a feed type (if needed), a feed and its stock row.
func SeedFeed(t *testing.T, store *gormstore.Store, spec FeedSpec) (*models.Feed, *models.FeedStock) {
	t.Helper()
	ctx := context.Background()

	orZero := func(v string) decimal.Decimal {
		if v == "" {
			return decimal.Zero
		}
		return Dec(t, v)
	}

	var (
		feed  *models.Feed
		stock *models.FeedStock
	)
	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		feedType, err := tx.FindFeedTypeByName(ctx, "Hijauan")
		if err != nil {
			feedType = &models.FeedType{Name: "Hijauan"}
			if err := tx.CreateFeedType(ctx, feedType); err != nil {
				return err
			}
		}

		feed = &models.Feed{
			TypeID:   feedType.ID,
			Name:     spec.Name,
			Protein:  orZero(spec.Protein),
			Energy:   orZero(spec.Energy),
			Fiber:    orZero(spec.Fiber),
			MinStock: orZero(spec.MinStock),
		}
		if err := tx.CreateFeed(ctx, feed); err != nil {
			return err
		}

		stock = &models.FeedStock{FeedID: feed.ID, Stock: orZero(spec.Stock)}
		return tx.CreateFeedStock(ctx, stock)
	})
	require.NoError(t, err, "seed feed %s", spec.Name)
	return feed, stock
}

// SeedSession inserts an empty feeding session.
func SeedSession(t *testing.T, store *gormstore.Store, cowID uint, date, session string) *models.DailyFeed {
	t.Helper()
	ctx := context.Background()

	dailyFeed := &models.DailyFeed{FarmerID: 1, CowID: cowID, Date: date, Session: session, Weather: "Clear"}
	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		return tx.CreateDailyFeed(ctx, dailyFeed)
	})
	require.NoError(t, err, "seed session")
	return dailyFeed
}

// StockOf reads the current stock level of a feed.
func StockOf(t *testing.T, store *gormstore.Store, feedID uint) decimal.Decimal {
	t.Helper()
	stock, err := store.GetFeedStockByFeed(context.Background(), feedID)
	require.NoError(t, err)
	return stock.Stock
}
