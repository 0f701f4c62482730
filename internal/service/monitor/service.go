package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

const (
	sweepLockKey = "feed-stock-sweep"
	sweepLockTTL = 2 * time.Minute
)

// Locker is a best effort distributed mutex.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Alerter forwards new low stock warnings outside the application.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// StockObserver receives every stock level seen by a sweep.
type StockObserver interface {
	ObserveStock(feedName string, stock, minStock decimal.Decimal)
}

// SweepResult summarises one pass over the feed stock.
type SweepResult struct {
	Checked        int                   `json:"checked"`
	BelowThreshold int                   `json:"below_threshold"`
	Created        int                   `json:"created"`
	Skipped        bool                  `json:"skipped,omitempty"`
	Notifications  []models.Notification `json:"notifications"`
}

// Option customises the monitor.
type Option func(*Service)

// WithLocker guards sweeps with a distributed lock.
func WithLocker(locker Locker) Option {
	return func(s *Service) { s.locker = locker }
}

// WithAlerter pushes newly created warnings to an external channel.
func WithAlerter(alerter Alerter) Option {
	return func(s *Service) { s.alerter = alerter }
}

// WithObserver reports stock levels, typically to metrics.
func WithObserver(observer StockObserver) Option {
	return func(s *Service) { s.observer = observer }
}

// Service compares stock with thresholds and manages notifications.
type Service struct {
	repo     gormstore.Repository
	locker   Locker
	alerter  Alerter
	observer StockObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the stock monitor.
func NewService(repository gormstore.Repository, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{repo: repository, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep creates a warning for every stock at or below its feed's minimum,
// unless an unread warning for that stock already exists.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, sweepLockKey, sweepLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("sweep lock unavailable, continuing without it", zap.Error(err))
		case !ok:
			s.logger.Info("another sweep is running, skipping")
			return &SweepResult{Skipped: true, Notifications: []models.Notification{}}, nil
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
					s.logger.Warn("release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	stocks, err := s.repo.ListFeedStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feed stocks: %w", err)
	}

	result := &SweepResult{Notifications: []models.Notification{}}
	for _, stock := range stocks {
		result.Checked++
		if s.observer != nil {
			s.observer.ObserveStock(stock.Feed.Name, stock.Stock, stock.Feed.MinStock)
		}
		if !stock.BelowThreshold(stock.Feed.MinStock) {
			continue
		}
		result.BelowThreshold++

		notification, err := s.warn(ctx, stock.ID)
		if err != nil {
			return nil, fmt.Errorf("check stock %d: %w", stock.ID, err)
		}
		if notification != nil {
			result.Created++
			result.Notifications = append(result.Notifications, *notification)
		}
	}

	s.logger.Info("feed stock sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("below_threshold", result.BelowThreshold),
		zap.Int("created", result.Created),
	)

	s.alert(ctx, result.Notifications)
	return result, nil
}

// warn locks the stock row, re-checks the threshold and creates the warning when none is unread.
func (s *Service) warn(ctx context.Context, stockID uint) (*models.Notification, error) {
	var created *models.Notification
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		stock, err := tx.LockFeedStock(ctx, stockID)
		if errors.Is(err, gormstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		feed, err := tx.GetFeed(ctx, stock.FeedID)
		if errors.Is(err, gormstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !stock.BelowThreshold(feed.MinStock) {
			return nil
		}

		_, err = tx.FindUnreadStockNotification(ctx, stock.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gormstore.ErrNotFound) {
			return err
		}

		notification := &models.Notification{
			FeedStockID: &stock.ID,
			Message:     models.LowStockMessage(feed.Name, stock.Stock),
			Type:        models.NotificationWarning,
			Date:        s.now(),
		}
		if err := tx.CreateNotification(ctx, notification); err != nil {
			return err
		}
		created = notification
		return nil
	})
	return created, err
}

func (s *Service) alert(ctx context.Context, notifications []models.Notification) {
	if s.alerter == nil {
		return
	}
	for _, n := range notifications {
		if err := s.alerter.Alert(ctx, n.Message); err != nil {
			s.logger.Warn("failed to forward stock alert", zap.Uint("notification_id", n.ID), zap.Error(err))
		}
	}
}

// List returns notifications newest first.
func (s *Service) List(ctx context.Context, filter gormstore.NotificationFilter) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, filter)
}

// MarkRead flags one notification as read and returns it.
func (s *Service) MarkRead(ctx context.Context, id uint) (*models.Notification, error) {
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		// MySQL reports zero affected rows when the flag is already set, so check existence first.
		if _, err := tx.GetNotification(ctx, id); err != nil {
			if errors.Is(err, gormstore.ErrNotFound) {
				return notificationNotFound(id)
			}
			return err
		}
		_, err := tx.MarkNotificationRead(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetNotification(ctx, id)
}

// MarkAllRead flags every unread notification and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	var changed int64
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		var err error
		changed, err = tx.MarkAllNotificationsRead(ctx)
		return err
	})
	return changed, err
}

// Delete removes a notification.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		found, err := tx.DeleteNotification(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return notificationNotFound(id)
		}
		return nil
	})
}

func notificationNotFound(id uint) error {
	return apperr.Newf(apperr.CodeNotFound, "Notifikasi dengan ID %d tidak ditemukan", id)
}
