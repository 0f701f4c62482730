package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/server/handlers"
	"github.com/mamadbah2/dairyfeed/pkg/redisstore"
)

// Handlers groups the HTTP adapters mounted by New. Webhook may be nil when
// WhatsApp is not configured.
type Handlers struct {
	Catalog       *handlers.CatalogHandler
	DailyFeed     *handlers.DailyFeedHandler
	Items         *handlers.DailyFeedItemHandler
	Nutrients     *handlers.NutrientHandler
	Notifications *handlers.NotificationHandler
	Webhook       *handlers.WebhookHandler
}

// Options carries the optional infrastructure of the router.
type Options struct {
	Idempotency    redisstore.IdempotencyStore
	Metrics        RequestObserver
	MetricsHandler http.Handler
	Health         func(ctx context.Context) error
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}

	idem := idempotency(opts.Idempotency, logger.Named("idempotency"))

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	api := r.Group("/api")

	feedTypes := api.Group("/feedType")
	feedTypes.GET("", h.Catalog.ListFeedTypes)
	feedTypes.POST("", h.Catalog.CreateFeedType)
	feedTypes.GET("/:id", h.Catalog.GetFeedType)
	feedTypes.PUT("/:id", h.Catalog.UpdateFeedType)
	feedTypes.DELETE("/:id", h.Catalog.DeleteFeedType)

	feeds := api.Group("/feed")
	feeds.GET("", h.Catalog.ListFeeds)
	feeds.POST("", h.Catalog.CreateFeed)
	feeds.GET("/:id", h.Catalog.GetFeed)
	feeds.PUT("/:id", h.Catalog.UpdateFeed)
	feeds.DELETE("/:id", h.Catalog.DeleteFeed)

	stocks := api.Group("/feedStock")
	stocks.GET("", h.Catalog.ListStocks)
	stocks.POST("/add", idem, h.Catalog.AddStock)
	stocks.GET("/:id", h.Catalog.GetStock)
	stocks.PUT("/:id", h.Catalog.SetStock)
	stocks.GET("/:id/movements", h.Catalog.ListMovements)

	sessions := api.Group("/dailyFeedComplete")
	sessions.GET("", h.DailyFeed.List)
	sessions.POST("", h.DailyFeed.Create)
	sessions.GET("/search", h.DailyFeed.List)
	sessions.GET("/:id", h.DailyFeed.Get)
	sessions.PUT("/:id", h.DailyFeed.Update)
	sessions.DELETE("/:id", h.DailyFeed.Delete)

	items := api.Group("/dailyFeedItem")
	items.GET("", h.Items.List)
	items.POST("", idem, h.Items.Add)
	items.GET("/usage", h.DailyFeed.Usage)
	items.GET("/daily-feeds/:daily_feed_id", h.Items.BySession)
	items.POST("/bulk-update", idem, h.Items.BulkUpdate)
	items.GET("/:id", h.Items.Get)
	items.PUT("/:id", idem, h.Items.Update)
	items.DELETE("/:id", idem, h.Items.Delete)

	nutrients := api.Group("/dailyFeedNutrients")
	nutrients.GET("", h.Nutrients.List)
	nutrients.GET("/:daily_feed_id", h.Nutrients.Get)
	nutrients.POST("/:daily_feed_id/recompute", h.Nutrients.Recompute)

	notifications := api.Group("/notification")
	notifications.GET("", h.Notifications.List)
	notifications.GET("/feed-stock", h.Notifications.ListFeedStock)
	notifications.POST("/check-feed-stock", h.Notifications.CheckFeedStock)
	notifications.PUT("/read-all", h.Notifications.MarkAllRead)
	notifications.PUT("/:id/read", h.Notifications.MarkRead)
	notifications.DELETE("/:id", h.Notifications.Delete)

	logger.Info("router initialized")
	return r
}
