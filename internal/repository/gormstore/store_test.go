package gormstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore/storetest"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	feed, stock := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Rumput Gajah", Stock: "100"})

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		locked, err := tx.LockFeedStockByFeed(ctx, feed.ID)
		require.NoError(t, err)
		require.Equal(t, stock.ID, locked.ID)
		require.NoError(t, tx.SetStockLevel(ctx, locked, storetest.Dec(t, "40"), models.MovementAdjustment, nil))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.True(t, storetest.Dec(t, "100").Equal(storetest.StockOf(t, store, feed.ID)))
	movements, err := store.ListMovements(ctx, feed.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestSetStockLevelRecordsMovement(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	feed, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Konsentrat", Stock: "50"})

	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		locked, err := tx.LockFeedStockByFeed(ctx, feed.ID)
		if err != nil {
			return err
		}
		return tx.SetStockLevel(ctx, locked, storetest.Dec(t, "42.5"), models.MovementConsumption, nil)
	})
	require.NoError(t, err)

	movements, err := store.ListMovements(ctx, feed.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, models.MovementConsumption, movements[0].Reason)
	assert.True(t, storetest.Dec(t, "-7.5").Equal(movements[0].Delta))
	assert.True(t, storetest.Dec(t, "50").Equal(movements[0].StockBefore))
	assert.True(t, storetest.Dec(t, "42.5").Equal(movements[0].StockAfter))
}

func TestSetStockLevelRefusesUnstorableLevels(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	feed, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Ampas Tahu", Stock: "50"})

	for level, want := range map[string]error{
		"49.995":    models.ErrQuantityPrecision,
		"100000000": models.ErrQuantityRange,
	} {
		err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
			locked, err := tx.LockFeedStockByFeed(ctx, feed.ID)
			if err != nil {
				return err
			}
			return tx.SetStockLevel(ctx, locked, storetest.Dec(t, level), models.MovementAdjustment, nil)
		})
		assert.ErrorIs(t, err, want, level)
	}

	assert.True(t, storetest.Dec(t, "50").Equal(storetest.StockOf(t, store, feed.ID)))
	movements, err := store.ListMovements(ctx, feed.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestLookupsReturnErrNotFound(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()

	_, err := store.GetFeed(ctx, 99)
	assert.ErrorIs(t, err, gormstore.ErrNotFound)
	_, err = store.GetDailyFeed(ctx, 99)
	assert.ErrorIs(t, err, gormstore.ErrNotFound)
	_, err = store.FindUnreadStockNotification(ctx, 99)
	assert.ErrorIs(t, err, gormstore.ErrNotFound)
}

func TestFeedUsageGroupsByDateAndFeed(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	hay, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Jerami", Stock: "100"})
	bran, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Dedak", Stock: "100"})

	morning := storetest.SeedSession(t, store, 1, "2026-03-01", "Pagi")
	evening := storetest.SeedSession(t, store, 2, "2026-03-01", "Sore")
	nextDay := storetest.SeedSession(t, store, 1, "2026-03-02", "Pagi")

	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		for _, item := range []models.DailyFeedItem{
			{DailyFeedID: morning.ID, FeedID: hay.ID, Quantity: storetest.Dec(t, "5")},
			{DailyFeedID: evening.ID, FeedID: hay.ID, Quantity: storetest.Dec(t, "2.5")},
			{DailyFeedID: evening.ID, FeedID: bran.ID, Quantity: storetest.Dec(t, "1")},
			{DailyFeedID: nextDay.ID, FeedID: hay.ID, Quantity: storetest.Dec(t, "4")},
		} {
			item := item
			if err := tx.CreateItem(ctx, &item); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	usage, err := store.FeedUsage(ctx, "2026-03-01", "2026-03-01")
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, "Dedak", usage[0].FeedName)
	assert.True(t, storetest.Dec(t, "1").Equal(usage[0].Quantity))
	assert.Equal(t, "Jerami", usage[1].FeedName)
	assert.True(t, storetest.Dec(t, "7.5").Equal(usage[1].Quantity))
}

func TestNotificationReadFlags(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	_, stock := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Silase", Stock: "1"})

	var created models.Notification
	err := store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		created = models.Notification{FeedStockID: &stock.ID, Message: "low", Type: models.NotificationWarning}
		if err := tx.CreateNotification(ctx, &created); err != nil {
			return err
		}
		return tx.CreateNotification(ctx, &models.Notification{Message: "hello", Type: models.NotificationInfo})
	})
	require.NoError(t, err)

	found, err := store.FindUnreadStockNotification(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	stockOnly, err := store.ListNotifications(ctx, gormstore.NotificationFilter{FeedStockOnly: true})
	require.NoError(t, err)
	assert.Len(t, stockOnly, 1)

	var changed int64
	require.NoError(t, store.WithinTx(ctx, func(tx *gormstore.Tx) error {
		var err error
		changed, err = tx.MarkAllNotificationsRead(ctx)
		return err
	}))
	assert.EqualValues(t, 2, changed)

	_, err = store.FindUnreadStockNotification(ctx, stock.ID)
	assert.ErrorIs(t, err, gormstore.ErrNotFound)
}
