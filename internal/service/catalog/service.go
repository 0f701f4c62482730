package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

// FeedInput carries the editable fields of a feed.
type FeedInput struct {
	TypeID   uint            `json:"type_id"`
	Name     string          `json:"name"`
	Protein  decimal.Decimal `json:"protein"`
	Energy   decimal.Decimal `json:"energy"`
	Fiber    decimal.Decimal `json:"fiber"`
	MinStock decimal.Decimal `json:"min_stock"`
	Price    decimal.Decimal `json:"price"`
}

// Service manages feed types, feeds and their stock rows.
type Service struct {
	repo   gormstore.Repository
	logger *zap.Logger
}

// NewService wires the catalog.
func NewService(repository gormstore.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, logger: logger}
}

// ListFeedTypes returns every feed type.
func (s *Service) ListFeedTypes(ctx context.Context) ([]models.FeedType, error) {
	return s.repo.ListFeedTypes(ctx)
}

// GetFeedType returns one feed type.
func (s *Service) GetFeedType(ctx context.Context, id uint) (*models.FeedType, error) {
	feedType, err := s.repo.GetFeedType(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Jenis pakan", id)
	}
	return feedType, nil
}

// CreateFeedType adds a feed type with a unique name.
func (s *Service) CreateFeedType(ctx context.Context, name string) (*models.FeedType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "Nama jenis pakan wajib diisi")
	}

	feedType := &models.FeedType{Name: name}
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if err := uniqueFeedTypeName(ctx, tx, name, 0); err != nil {
			return err
		}
		return tx.CreateFeedType(ctx, feedType)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed type created", zap.Uint("id", feedType.ID), zap.String("name", name))
	return feedType, nil
}

// UpdateFeedType renames a feed type.
func (s *Service) UpdateFeedType(ctx context.Context, id uint, name string) (*models.FeedType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "Nama jenis pakan wajib diisi")
	}

	var updated *models.FeedType
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		feedType, err := tx.GetFeedType(ctx, id)
		if err != nil {
			return lookupErr(err, "Jenis pakan", id)
		}
		if err := uniqueFeedTypeName(ctx, tx, name, id); err != nil {
			return err
		}
		feedType.Name = name
		updated = feedType
		return tx.SaveFeedType(ctx, feedType)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteFeedType removes a feed type that no feed references.
func (s *Service) DeleteFeedType(ctx context.Context, id uint) error {
	return s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.GetFeedType(ctx, id); err != nil {
			return lookupErr(err, "Jenis pakan", id)
		}
		count, err := tx.CountFeedsOfType(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.Newf(apperr.CodeConflict, "Jenis pakan masih digunakan oleh %d pakan", count)
		}
		_, err = tx.DeleteFeedType(ctx, id)
		return err
	})
}

// ListFeeds returns feeds with their type and stock.
func (s *Service) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	return s.repo.ListFeeds(ctx)
}

// GetFeed returns one feed with its type and stock.
func (s *Service) GetFeed(ctx context.Context, id uint) (*models.Feed, error) {
	feed, err := s.repo.GetFeed(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Pakan", id)
	}
	return feed, nil
}

// CreateFeed adds a feed and its empty stock row.
func (s *Service) CreateFeed(ctx context.Context, input FeedInput) (*models.Feed, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateFeed(input); err != nil {
		return nil, err
	}

	feed := &models.Feed{}
	applyFeedInput(feed, input)
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.GetFeedType(ctx, input.TypeID); err != nil {
			return lookupErr(err, "Jenis pakan", input.TypeID)
		}
		if err := uniqueFeedName(ctx, tx, input.Name, 0); err != nil {
			return err
		}
		if err := tx.CreateFeed(ctx, feed); err != nil {
			return err
		}
		return tx.CreateFeedStock(ctx, &models.FeedStock{FeedID: feed.ID, Stock: decimal.Zero})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed created", zap.Uint("id", feed.ID), zap.String("name", feed.Name))
	return s.GetFeed(ctx, feed.ID)
}

// UpdateFeed replaces the editable fields of a feed.
func (s *Service) UpdateFeed(ctx context.Context, id uint, input FeedInput) (*models.Feed, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateFeed(input); err != nil {
		return nil, err
	}

	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		feed, err := tx.GetFeed(ctx, id)
		if err != nil {
			return lookupErr(err, "Pakan", id)
		}
		if _, err := tx.GetFeedType(ctx, input.TypeID); err != nil {
			return lookupErr(err, "Jenis pakan", input.TypeID)
		}
		if err := uniqueFeedName(ctx, tx, input.Name, id); err != nil {
			return err
		}
		applyFeedInput(feed, input)
		return tx.SaveFeed(ctx, feed)
	})
	if err != nil {
		return nil, err
	}
	return s.GetFeed(ctx, id)
}

// DeleteFeed removes a feed that has never been consumed, with its stock row.
func (s *Service) DeleteFeed(ctx context.Context, id uint) error {
	return s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.GetFeed(ctx, id); err != nil {
			return lookupErr(err, "Pakan", id)
		}
		count, err := tx.CountItemsOfFeed(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.Newf(apperr.CodeConflict, "Pakan masih digunakan oleh %d item pakan harian", count)
		}
		_, err = tx.DeleteFeed(ctx, id)
		return err
	})
}

// ListStocks returns every stock row with its feed.
func (s *Service) ListStocks(ctx context.Context) ([]models.FeedStock, error) {
	return s.repo.ListFeedStocks(ctx)
}

// GetStock returns one stock row.
func (s *Service) GetStock(ctx context.Context, id uint) (*models.FeedStock, error) {
	stock, err := s.repo.GetFeedStock(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Stok pakan", id)
	}
	return stock, nil
}

// AddStock increments a feed's stock, creating the row when the feed has none.
func (s *Service) AddStock(ctx context.Context, feedID uint, additional decimal.Decimal) (*models.FeedStock, error) {
	if feedID == 0 || !additional.IsPositive() {
		return nil, apperr.New(apperr.CodeValidation, "feedId dan additionalStock (> 0) wajib diisi")
	}
	if err := checkQuantity("additionalStock", additional); err != nil {
		return nil, err
	}

	var stockID uint
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		feed, err := tx.GetFeed(ctx, feedID)
		if err != nil {
			return lookupErr(err, "Pakan", feedID)
		}

		stock, err := tx.LockFeedStockByFeed(ctx, feedID)
		if errors.Is(err, gormstore.ErrNotFound) {
			stock = &models.FeedStock{FeedID: feed.ID, Stock: decimal.Zero}
			err = tx.CreateFeedStock(ctx, stock)
		}
		if err != nil {
			return err
		}

		stockID = stock.ID
		level := stock.Stock.Add(additional)
		if err := checkQuantity("Stok "+feed.Name+" setelah penambahan", level); err != nil {
			return err
		}
		return tx.SetStockLevel(ctx, stock, level, models.MovementRestock, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed stock added", zap.Uint("feed_id", feedID), zap.String("additional", additional.String()))
	return s.GetStock(ctx, stockID)
}

// SetStock overwrites a stock level as a manual correction.
func (s *Service) SetStock(ctx context.Context, id uint, level decimal.Decimal) (*models.FeedStock, error) {
	if level.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "Stok tidak boleh negatif")
	}
	if err := checkQuantity("stock", level); err != nil {
		return nil, err
	}

	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		stock, err := tx.LockFeedStock(ctx, id)
		if err != nil {
			return lookupErr(err, "Stok pakan", id)
		}
		if stock.Stock.Equal(level) {
			return nil
		}
		return tx.SetStockLevel(ctx, stock, level, models.MovementAdjustment, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed stock corrected", zap.Uint("stock_id", id), zap.String("stock", level.String()))
	return s.GetStock(ctx, id)
}

// ListMovements returns the movement history of the stock row.
func (s *Service) ListMovements(ctx context.Context, stockID uint) ([]models.FeedStockMovement, error) {
	stock, err := s.GetStock(ctx, stockID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, stock.FeedID)
}

func validateFeed(input FeedInput) error {
	var problems []string
	if input.TypeID == 0 {
		problems = append(problems, "type_id wajib diisi")
	}
	if input.Name == "" {
		problems = append(problems, "name wajib diisi")
	}
	for field, value := range map[string]decimal.Decimal{
		"protein":   input.Protein,
		"energy":    input.Energy,
		"fiber":     input.Fiber,
		"min_stock": input.MinStock,
		"price":     input.Price,
	} {
		if value.IsNegative() {
			problems = append(problems, field+" tidak boleh negatif")
		}
		if models.CheckQuantity(value) != nil {
			problems = append(problems, field+" maksimal 2 angka desimal dan kurang dari "+models.MaxQuantity.String())
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return apperr.New(apperr.CodeValidation, "Data pakan tidak valid").WithDetails(problems)
}

func applyFeedInput(feed *models.Feed, input FeedInput) {
	feed.TypeID = input.TypeID
	feed.Name = input.Name
	feed.Protein = input.Protein
	feed.Energy = input.Energy
	feed.Fiber = input.Fiber
	feed.MinStock = input.MinStock
	feed.Price = input.Price
	feed.Type = nil
	feed.Stock = nil
}

func uniqueFeedTypeName(ctx context.Context, tx *gormstore.Tx, name string, selfID uint) error {
	existing, err := tx.FindFeedTypeByName(ctx, name)
	if errors.Is(err, gormstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return apperr.Newf(apperr.CodeConflict, "Jenis pakan dengan nama %s sudah ada", name)
	}
	return nil
}

func uniqueFeedName(ctx context.Context, tx *gormstore.Tx, name string, selfID uint) error {
	existing, err := tx.FindFeedByName(ctx, name)
	if errors.Is(err, gormstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return apperr.Newf(apperr.CodeConflict, "Pakan dengan nama %s sudah ada", name)
	}
	return nil
}

func checkQuantity(field string, q decimal.Decimal) error {
	if err := models.CheckQuantity(q); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err,
			fmt.Sprintf("%s %s tidak valid: maksimal 2 angka desimal dan kurang dari %s", field, q.String(), models.MaxQuantity.String()))
	}
	return nil
}

func lookupErr(err error, entity string, id uint) error {
	if errors.Is(err, gormstore.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "%s dengan ID %d tidak ditemukan", entity, id)
	}
	return fmt.Errorf("load %s %d: %w", strings.ToLower(entity), id, err)
}
