package dailyfeed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore/storetest"
	"github.com/mamadbah2/dairyfeed/internal/service/dailyfeed"
	"github.com/mamadbah2/dairyfeed/internal/service/ledger"
	"github.com/mamadbah2/dairyfeed/internal/service/nutrition"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

type fixedWeather string

func (w fixedWeather) Current(context.Context) string { return string(w) }

func TestCreateSession(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	svc := dailyfeed.NewService(store, fixedWeather("hujan ringan"), nil)

	created, err := svc.Create(ctx, dailyfeed.CreateInput{FarmerID: 1, CowID: 4, Date: "2026-06-01", Session: "morning"})
	require.NoError(t, err)
	assert.Equal(t, "Pagi", created.Session)
	assert.Equal(t, "hujan ringan", created.Weather)
	assert.Empty(t, created.Items)

	_, err = svc.Create(ctx, dailyfeed.CreateInput{FarmerID: 1, CowID: 4, Date: "2026-06-01", Session: "pagi"})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))

	_, err = svc.Create(ctx, dailyfeed.CreateInput{FarmerID: 1, CowID: 4, Date: "01-06-2026", Session: "pagi"})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	_, err = svc.Create(ctx, dailyfeed.CreateInput{FarmerID: 1, CowID: 4, Date: "2026-06-01", Session: "malam"})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	_, err = svc.Create(ctx, dailyfeed.CreateInput{CowID: 4, Date: "2026-06-01", Session: "pagi"})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
}

func TestCreateWithoutWeatherProvider(t *testing.T) {
	store := storetest.New(t)
	svc := dailyfeed.NewService(store, nil, nil)

	created, err := svc.Create(context.Background(), dailyfeed.CreateInput{FarmerID: 1, CowID: 2, Date: "2026-06-01", Session: "sore"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", created.Weather)
}

func TestUpdateKeepsUniqueness(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	svc := dailyfeed.NewService(store, nil, nil)

	morning := storetest.SeedSession(t, store, 1, "2026-06-01", "Pagi")
	storetest.SeedSession(t, store, 1, "2026-06-01", "Sore")

	_, err := svc.Update(ctx, morning.ID, dailyfeed.UpdateInput{Session: "evening"})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))

	updated, err := svc.Update(ctx, morning.ID, dailyfeed.UpdateInput{Session: "siang", Weather: "cerah"})
	require.NoError(t, err)
	assert.Equal(t, "Siang", updated.Session)
	assert.Equal(t, "cerah", updated.Weather)

	_, err = svc.Update(ctx, 999, dailyfeed.UpdateInput{})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestDeleteReturnsItemsToStock(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	svc := dailyfeed.NewService(store, nil, nil)
	ledgerSvc := ledger.NewService(store, nutrition.NewService(store, nil), nil)

	feed, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Rumput", Protein: "0.1", Stock: "100"})
	session := storetest.SeedSession(t, store, 1, "2026-06-01", "Pagi")

	_, err := ledgerSvc.AddItems(ctx, ledger.AddItemsInput{
		DailyFeedID: session.ID,
		Items:       []ledger.ItemInput{{FeedID: feed.ID, Quantity: storetest.Dec(t, "30")}},
	})
	require.NoError(t, err)
	assert.True(t, storetest.Dec(t, "70").Equal(storetest.StockOf(t, store, feed.ID)))

	require.NoError(t, svc.Delete(ctx, session.ID))
	assert.True(t, storetest.Dec(t, "100").Equal(storetest.StockOf(t, store, feed.ID)))

	_, err = svc.Get(ctx, session.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	_, err = store.GetNutrients(ctx, session.ID)
	assert.ErrorIs(t, err, gormstore.ErrNotFound)

	err = svc.Delete(ctx, session.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestListAndFeedUsage(t *testing.T) {
	store := storetest.New(t)
	ctx := context.Background()
	svc := dailyfeed.NewService(store, nil, nil)
	ledgerSvc := ledger.NewService(store, nutrition.NewService(store, nil), nil)

	feed, _ := storetest.SeedFeed(t, store, storetest.FeedSpec{Name: "Rumput", Stock: "100"})
	first := storetest.SeedSession(t, store, 1, "2026-06-01", "Pagi")
	second := storetest.SeedSession(t, store, 2, "2026-06-02", "Pagi")

	for _, session := range []uint{first.ID, second.ID} {
		_, err := ledgerSvc.AddItems(ctx, ledger.AddItemsInput{
			DailyFeedID: session,
			Items:       []ledger.ItemInput{{FeedID: feed.ID, Quantity: storetest.Dec(t, "10")}},
		})
		require.NoError(t, err)
	}

	sessions, err := svc.List(ctx, gormstore.DailyFeedFilter{StartDate: "2026-06-02", EndDate: "2026-06-30"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.ID, sessions[0].ID)

	byCow, err := svc.List(ctx, gormstore.DailyFeedFilter{CowID: 1, Session: "morning"})
	require.NoError(t, err)
	require.Len(t, byCow, 1)
	assert.Equal(t, first.ID, byCow[0].ID)

	_, err = svc.List(ctx, gormstore.DailyFeedFilter{StartDate: "2026-07-01", EndDate: "2026-06-01"})
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	usage, err := svc.FeedUsage(ctx, "2026-06-01", "2026-06-02")
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, "2026-06-01", usage[0].Date)
	require.Len(t, usage[0].Feeds, 1)
	assert.True(t, storetest.Dec(t, "10").Equal(usage[0].Feeds[0].Quantity))
}
