package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

// NutrientRecomputer rebuilds a session's totals inside an open transaction.
type NutrientRecomputer interface {
	Recompute(ctx context.Context, tx *gormstore.Tx, dailyFeedID uint) (*models.DailyFeedNutrients, error)
}

// ItemInput is one feed line of an add request.
type ItemInput struct {
	FeedID   uint            `json:"feed_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AddItemsInput adds several feeds to one session.
type AddItemsInput struct {
	DailyFeedID uint        `json:"daily_feed_id"`
	Items       []ItemInput `json:"feed_items"`
}

// QuantityUpdate changes the quantity of an existing item.
type QuantityUpdate struct {
	ID       uint            `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Service applies ledger entries to feed stock. Every mutation runs in one
// transaction that locks the stock rows it touches and recomputes nutrients
// before committing.
type Service struct {
	repo      gormstore.Repository
	nutrients NutrientRecomputer
	logger    *zap.Logger
}

// NewService wires the ledger.
func NewService(repository gormstore.Repository, nutrients NutrientRecomputer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, nutrients: nutrients, logger: logger}
}

// AddItems inserts feed items into a session and deducts their quantities from stock.
// The whole batch fails when any item fails.
func (s *Service) AddItems(ctx context.Context, input AddItemsInput) (*models.DailyFeed, error) {
	if input.DailyFeedID == 0 {
		return nil, apperr.New(apperr.CodeValidation, "daily_feed_id wajib diisi")
	}
	if len(input.Items) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "Items harus berupa array dan tidak boleh kosong")
	}
	for i, item := range input.Items {
		if item.FeedID == 0 || !item.Quantity.IsPositive() {
			return nil, apperr.Newf(apperr.CodeValidation, "Item ke-%d harus memiliki feed_id dan quantity lebih dari 0", i+1)
		}
		if err := checkQuantity(fmt.Sprintf("quantity item ke-%d", i+1), item.Quantity); err != nil {
			return nil, err
		}
	}

	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.LockDailyFeed(ctx, input.DailyFeedID); err != nil {
			return sessionNotFound(err, input.DailyFeedID)
		}

		existing, err := tx.ItemsForSession(ctx, input.DailyFeedID)
		if err != nil {
			return err
		}
		if err := checkBatch(ctx, tx, existing, input.Items); err != nil {
			return err
		}

		for _, in := range input.Items {
			feed, err := tx.GetFeed(ctx, in.FeedID)
			if err != nil {
				return feedNotFound(err, in.FeedID)
			}

			stock, err := tx.LockFeedStockByFeed(ctx, in.FeedID)
			if err != nil {
				if errors.Is(err, gormstore.ErrNotFound) {
					return apperr.Newf(apperr.CodeNotFound, "Stok untuk pakan %s tidak ditemukan", feed.Name)
				}
				return fmt.Errorf("lock stock: %w", err)
			}
			if stock.Stock.LessThan(in.Quantity) {
				return insufficient(feed.Name, stock.Stock, in.Quantity)
			}

			item := &models.DailyFeedItem{
				DailyFeedID: input.DailyFeedID,
				FeedID:      in.FeedID,
				Quantity:    in.Quantity,
			}
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
			if err := tx.SetStockLevel(ctx, stock, stock.Stock.Sub(in.Quantity), models.MovementConsumption, &item.ID); err != nil {
				return err
			}
		}

		_, err = s.nutrients.Recompute(ctx, tx, input.DailyFeedID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed items added",
		zap.Uint("daily_feed_id", input.DailyFeedID),
		zap.Int("items", len(input.Items)),
	)
	return s.repo.GetDailyFeed(ctx, input.DailyFeedID)
}

// checkBatch enforces the per-session feed limit and rejects duplicate feeds.
func checkBatch(ctx context.Context, tx *gormstore.Tx, existing []models.DailyFeedItem, items []ItemInput) error {
	present := make(map[uint]string, len(existing))
	for _, item := range existing {
		name := ""
		if item.Feed != nil {
			name = item.Feed.Name
		}
		present[item.FeedID] = name
	}

	requested := make(map[uint]bool, len(items))
	var repeated, already []uint
	for _, item := range items {
		if requested[item.FeedID] {
			repeated = append(repeated, item.FeedID)
		}
		requested[item.FeedID] = true
		if _, ok := present[item.FeedID]; ok {
			already = append(already, item.FeedID)
		}
	}

	if len(repeated) > 0 {
		names, err := feedNames(ctx, tx, repeated)
		if err != nil {
			return err
		}
		return apperr.Newf(apperr.CodeValidation,
			"Tidak dapat menambahkan pakan yang sama lebih dari sekali dalam satu permintaan: %s", names)
	}
	if len(already) > 0 {
		names, err := feedNames(ctx, tx, already)
		if err != nil {
			return err
		}
		return apperr.Newf(apperr.CodeValidation, "Pakan sudah ada dalam sesi ini: %s", names).
			WithDetails(map[string]any{"feed_ids": already})
	}

	remaining := models.MaxFeedTypesPerSession - len(present)
	if len(items) > remaining {
		if remaining <= 0 {
			return apperr.Newf(apperr.CodeValidation,
				"Sesi ini sudah memiliki %d jenis pakan (maksimal %d)", len(present), models.MaxFeedTypesPerSession)
		}
		return apperr.Newf(apperr.CodeValidation,
			"Maksimal %d jenis pakan per sesi. Sisa slot: %d, diminta: %d",
			models.MaxFeedTypesPerSession, remaining, len(items))
	}
	return nil
}

// UpdateItem changes an item's quantity and applies the signed difference to stock.
func (s *Service) UpdateItem(ctx context.Context, id uint, quantity decimal.Decimal) (*models.DailyFeedItem, error) {
	if !quantity.IsPositive() {
		return nil, apperr.New(apperr.CodeValidation, "quantity harus lebih dari 0")
	}
	if err := checkQuantity("quantity", quantity); err != nil {
		return nil, err
	}

	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		dailyFeedID, err := s.applyQuantity(ctx, tx, id, quantity)
		if err != nil {
			return err
		}
		_, err = s.nutrients.Recompute(ctx, tx, dailyFeedID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed item updated", zap.Uint("item_id", id), zap.String("quantity", quantity.String()))
	return s.GetItem(ctx, id)
}

// BulkUpdate applies several quantity changes atomically.
func (s *Service) BulkUpdate(ctx context.Context, updates []QuantityUpdate) ([]models.DailyFeedItem, error) {
	if len(updates) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "Items harus berupa array dan tidak boleh kosong")
	}
	seen := make(map[uint]bool, len(updates))
	for i, u := range updates {
		if u.ID == 0 || !u.Quantity.IsPositive() {
			return nil, apperr.Newf(apperr.CodeValidation, "Item ke-%d harus memiliki id dan quantity lebih dari 0", i+1)
		}
		if err := checkQuantity(fmt.Sprintf("quantity item ke-%d", i+1), u.Quantity); err != nil {
			return nil, err
		}
		if seen[u.ID] {
			return nil, apperr.Newf(apperr.CodeValidation, "Item dengan ID %d muncul lebih dari sekali", u.ID)
		}
		seen[u.ID] = true
	}

	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		touched := make(map[uint]struct{})
		for _, u := range updates {
			dailyFeedID, err := s.applyQuantity(ctx, tx, u.ID, u.Quantity)
			if err != nil {
				return err
			}
			touched[dailyFeedID] = struct{}{}
		}

		for _, dailyFeedID := range sortedKeys(touched) {
			if _, err := s.nutrients.Recompute(ctx, tx, dailyFeedID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed items bulk updated", zap.Int("items", len(updates)))

	result := make([]models.DailyFeedItem, 0, len(updates))
	for _, u := range updates {
		item, err := s.GetItem(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, nil
}

// applyQuantity locks the item and its stock, checks availability and writes both.
// It returns the item's session id.
func (s *Service) applyQuantity(ctx context.Context, tx *gormstore.Tx, id uint, quantity decimal.Decimal) (uint, error) {
	item, err := tx.LockItem(ctx, id)
	if err != nil {
		return 0, itemNotFound(err, id)
	}

	diff := quantity.Sub(item.Quantity)
	if diff.IsZero() {
		return item.DailyFeedID, nil
	}

	stock, err := tx.LockFeedStockByFeed(ctx, item.FeedID)
	if err != nil {
		if errors.Is(err, gormstore.ErrNotFound) {
			return 0, apperr.Newf(apperr.CodeNotFound, "Stok untuk pakan ID %d tidak ditemukan", item.FeedID)
		}
		return 0, fmt.Errorf("lock stock: %w", err)
	}

	if diff.IsPositive() && stock.Stock.LessThan(diff) {
		name := fmt.Sprintf("ID %d", item.FeedID)
		if item.Feed != nil {
			name = item.Feed.Name
		}
		return 0, insufficient(name, stock.Stock, diff)
	}

	reason := models.MovementConsumption
	if diff.IsNegative() {
		reason = models.MovementReturn
	}
	level := stock.Stock.Sub(diff)
	if err := checkQuantity("Stok hasil perubahan", level); err != nil {
		return 0, err
	}
	if err := tx.SetStockLevel(ctx, stock, level, reason, &item.ID); err != nil {
		return 0, err
	}

	item.Quantity = quantity
	if err := tx.UpdateItemQuantity(ctx, item); err != nil {
		return 0, err
	}
	return item.DailyFeedID, nil
}

// DeleteItem removes an item and returns its quantity to stock.
func (s *Service) DeleteItem(ctx context.Context, id uint) error {
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		item, err := tx.LockItem(ctx, id)
		if err != nil {
			return itemNotFound(err, id)
		}
		if err := ReturnToStock(ctx, tx, item); err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, id); err != nil {
			return err
		}
		_, err = s.nutrients.Recompute(ctx, tx, item.DailyFeedID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("feed item deleted", zap.Uint("item_id", id))
	return nil
}

// ReturnToStock credits an item's quantity back to its feed stock. A missing
// stock row is tolerated so orphaned items can still be removed.
func ReturnToStock(ctx context.Context, tx *gormstore.Tx, item *models.DailyFeedItem) error {
	stock, err := tx.LockFeedStockByFeed(ctx, item.FeedID)
	if errors.Is(err, gormstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock stock: %w", err)
	}
	level := stock.Stock.Add(item.Quantity)
	if err := checkQuantity("Stok hasil pengembalian", level); err != nil {
		return err
	}
	return tx.SetStockLevel(ctx, stock, level, models.MovementReturn, &item.ID)
}

// GetItem returns one item with its feed.
func (s *Service) GetItem(ctx context.Context, id uint) (*models.DailyFeedItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, itemNotFound(err, id)
	}
	return item, nil
}

// ListItems returns items matching the filter.
func (s *Service) ListItems(ctx context.Context, filter gormstore.ItemFilter) ([]models.DailyFeedItem, error) {
	return s.repo.ListItems(ctx, filter)
}

// ItemsBySession returns the items of an existing session.
func (s *Service) ItemsBySession(ctx context.Context, dailyFeedID uint) ([]models.DailyFeedItem, error) {
	if _, err := s.repo.GetDailyFeed(ctx, dailyFeedID); err != nil {
		return nil, sessionNotFound(err, dailyFeedID)
	}
	return s.repo.ItemsForSession(ctx, dailyFeedID)
}

// checkQuantity rejects values the kg columns would round or overflow.
func checkQuantity(field string, q decimal.Decimal) error {
	if err := models.CheckQuantity(q); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err,
			fmt.Sprintf("%s %s tidak valid: maksimal 2 angka desimal dan kurang dari %s", field, q.String(), models.MaxQuantity.String()))
	}
	return nil
}

func insufficient(feedName string, available, requested decimal.Decimal) error {
	return apperr.Newf(apperr.CodeValidation,
		"Stok tidak cukup untuk %s. Tersedia: %skg, Diminta: %skg",
		feedName, available.String(), requested.String(),
	).WithDetails(map[string]any{
		"feed":      feedName,
		"available": available,
		"requested": requested,
	})
}

func feedNames(ctx context.Context, tx *gormstore.Tx, ids []uint) (string, error) {
	feeds, err := tx.GetFeedsByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	byID := make(map[uint]string, len(feeds))
	for _, f := range feeds {
		byID[f.ID] = f.Name
	}

	names := make([]string, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("ID %d", id))
		}
	}
	return strings.Join(names, ", "), nil
}

func sortedKeys(set map[uint]struct{}) []uint {
	keys := make([]uint, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sessionNotFound(err error, id uint) error {
	if errors.Is(err, gormstore.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "Sesi pakan harian dengan ID %d tidak ditemukan", id)
	}
	return fmt.Errorf("load session %d: %w", id, err)
}

func itemNotFound(err error, id uint) error {
	if errors.Is(err, gormstore.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "Item pakan dengan ID %d tidak ditemukan", id)
	}
	return fmt.Errorf("load item %d: %w", id, err)
}

func feedNotFound(err error, id uint) error {
	if errors.Is(err, gormstore.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "Pakan dengan ID %d tidak ditemukan", id)
	}
	return fmt.Errorf("load feed %d: %w", id, err)
}
