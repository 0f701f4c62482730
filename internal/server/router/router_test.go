package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore/storetest"
	"github.com/mamadbah2/dairyfeed/internal/server/handlers"
	"github.com/mamadbah2/dairyfeed/internal/service/catalog"
	"github.com/mamadbah2/dairyfeed/internal/service/dailyfeed"
	"github.com/mamadbah2/dairyfeed/internal/service/ledger"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
	"github.com/mamadbah2/dairyfeed/internal/service/nutrition"
	"github.com/mamadbah2/dairyfeed/pkg/redisstore"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Count   *int   `json:"count"`
}

func newTestEngine(t *testing.T, idem redisstore.IdempotencyStore) *gin.Engine {
	t.Helper()
	store := storetest.New(t)
	nutrients := nutrition.NewService(store, nil)

	return New(Handlers{
		Catalog:       handlers.NewCatalogHandler(catalog.NewService(store, nil), nil),
		DailyFeed:     handlers.NewDailyFeedHandler(dailyfeed.NewService(store, nil, nil), nil),
		Items:         handlers.NewDailyFeedItemHandler(ledger.NewService(store, nutrients, nil), nil),
		Nutrients:     handlers.NewNutrientHandler(nutrients, nil),
		Notifications: handlers.NewNotificationHandler(monitor.NewService(store, nil), nil),
	}, Options{Idempotency: idem}, nil)
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seedRumput creates feed "Rumput" (min 20kg) holding 100kg and a morning session.
func seedRumput(t *testing.T, r http.Handler) (feed models.Feed, sessionID uint) {
	t.Helper()

	rec := do(t, r, http.MethodPost, "/api/feedType", `{"name":"Hijauan"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	feedType := decode[models.FeedType](t, rec).Data

	rec = do(t, r, http.MethodPost, "/api/feed",
		fmt.Sprintf(`{"type_id":%d,"name":"Rumput","protein":0.1,"energy":2,"fiber":0.3,"min_stock":20}`, feedType.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	feed = decode[models.Feed](t, rec).Data

	rec = do(t, r, http.MethodPost, "/api/feedStock/add", fmt.Sprintf(`{"feedId":%d,"additionalStock":100}`, feed.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/dailyFeedComplete", `{"farmer_id":1,"cow_id":7,"date":"2026-06-01","session":"pagi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return feed, decode[models.DailyFeed](t, rec).Data.ID
}

func stockOf(t *testing.T, r http.Handler, stockID uint) decimal.Decimal {
	t.Helper()
	rec := do(t, r, http.MethodGet, fmt.Sprintf("/api/feedStock/%d", stockID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.FeedStock](t, rec).Data.Stock
}

func TestFeedingDeductsStockAndWarnsOnce(t *testing.T) {
	r := newTestEngine(t, nil)
	feed, sessionID := seedRumput(t, r)

	rec := do(t, r, http.MethodPost, "/api/dailyFeedItem",
		fmt.Sprintf(`{"daily_feed_id":%d,"feed_items":[{"feed_id":%d,"quantity":85}]}`, sessionID, feed.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[models.DailyFeed](t, rec).Data
	require.Len(t, session.Items, 1)
	require.NotNil(t, session.Nutrients)
	assert.True(t, decimal.RequireFromString("8.5").Equal(session.Nutrients.TotalProtein))

	assert.True(t, decimal.NewFromInt(15).Equal(stockOf(t, r, feed.Stock.ID)))

	rec = do(t, r, http.MethodPost, "/api/notification/check-feed-stock", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[monitor.SweepResult](t, rec).Data
	assert.Equal(t, 1, first.Created)
	require.Len(t, first.Notifications, 1)
	assert.Contains(t, first.Notifications[0].Message, "Stok Rumput tinggal 15kg")

	rec = do(t, r, http.MethodPost, "/api/notification/check-feed-stock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[monitor.SweepResult](t, rec).Data.Created)

	rec = do(t, r, http.MethodGet, "/api/notification/feed-stock", "")
	list := decode[[]models.Notification](t, rec)
	require.NotNil(t, list.Count)
	assert.Equal(t, 1, *list.Count)
}

func TestInsufficientStockIsRejected(t *testing.T) {
	r := newTestEngine(t, nil)
	feed, sessionID := seedRumput(t, r)

	rec := do(t, r, http.MethodPost, "/api/dailyFeedItem",
		fmt.Sprintf(`{"daily_feed_id":%d,"feed_items":[{"feed_id":%d,"quantity":150}]}`, sessionID, feed.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[any](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "Stok tidak cukup untuk Rumput. Tersedia: 100kg, Diminta: 150kg", body.Message)

	assert.True(t, decimal.NewFromInt(100).Equal(stockOf(t, r, feed.Stock.ID)))
}

func TestErrorEnvelopes(t *testing.T) {
	r := newTestEngine(t, nil)

	rec := do(t, r, http.MethodGet, "/api/dailyFeedItem/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item pakan dengan ID 999 tidak ditemukan", decode[any](t, rec).Message)

	rec = do(t, r, http.MethodGet, "/api/dailyFeedComplete/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/dailyFeedItem", `{"daily_feed_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode[any](t, rec).Success)

	rec = do(t, r, http.MethodGet, "/api/dailyFeedItem/usage?start_date=2026-06-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestIdempotentRetryDeductsOnce(t *testing.T) {
	r := newTestEngine(t, newFakeStore())
	feed, sessionID := seedRumput(t, r)
	body := fmt.Sprintf(`{"daily_feed_id":%d,"feed_items":[{"feed_id":%d,"quantity":30}]}`, sessionID, feed.ID)

	first := do(t, r, http.MethodPost, "/api/dailyFeedItem", body, idempotencyHeader, "retry-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := do(t, r, http.MethodPost, "/api/dailyFeedItem", body, idempotencyHeader, "retry-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.True(t, decimal.NewFromInt(70).Equal(stockOf(t, r, feed.Stock.ID)))

	other := fmt.Sprintf(`{"daily_feed_id":%d,"feed_items":[{"feed_id":%d,"quantity":31}]}`, sessionID, feed.ID)
	rec := do(t, r, http.MethodPost, "/api/dailyFeedItem", other, idempotencyHeader, "retry-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	r := newTestEngine(t, store)
	body := `{"feedId":1,"additionalStock":5}`

	pending, err := json.Marshal(idempotencyRecord{Pending: true, RequestHash: hashBody([]byte(body))})
	require.NoError(t, err)
	store.data[store.IdempotencyKey("POST|/api/feedStock/add", "dup")] = string(pending)

	rec := do(t, r, http.MethodPost, "/api/feedStock/add", body, idempotencyHeader, "dup")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[any](t, rec).Message, "sedang diproses")
}

func TestFailedRequestReleasesKey(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	calls := 0
	r.POST("/boom", idempotency(store, nil), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})

	do(t, r, http.MethodPost, "/boom", `{}`, idempotencyHeader, "k")
	do(t, r, http.MethodPost, "/boom", `{}`, idempotencyHeader, "k")
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestPanickingHandlerReleasesKey(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	r.Use(gin.Recovery())
	calls := 0
	r.POST("/panic", idempotency(store, nil), func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("handler failed")
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	first := do(t, r, http.MethodPost, "/panic", `{}`, idempotencyHeader, "k")
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Empty(t, store.data)

	retry := do(t, r, http.MethodPost, "/panic", `{}`, idempotencyHeader, "k")
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 1)
}
