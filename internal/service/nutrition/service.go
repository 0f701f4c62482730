package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

const precision = 2

// Totals are the nutrient sums of a session.
type Totals struct {
	Protein decimal.Decimal `json:"total_protein"`
	Energy  decimal.Decimal `json:"total_energy"`
	Fiber   decimal.Decimal `json:"total_fiber"`
}

// Compute sums quantity x density for every item whose feed is loaded.
// Results are rounded half away from zero to two decimals.
func Compute(items []models.DailyFeedItem) Totals {
	protein, energy, fiber := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		if item.Feed == nil {
			continue
		}
		protein = protein.Add(item.Quantity.Mul(item.Feed.Protein))
		energy = energy.Add(item.Quantity.Mul(item.Feed.Energy))
		fiber = fiber.Add(item.Quantity.Mul(item.Feed.Fiber))
	}
	return Totals{
		Protein: protein.Round(precision),
		Energy:  energy.Round(precision),
		Fiber:   fiber.Round(precision),
	}
}

// Service keeps the cached nutrient rows in sync with session items.
type Service struct {
	repo   gormstore.Repository
	logger *zap.Logger
}

// NewService wires a nutrient aggregator.
func NewService(repository gormstore.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, logger: logger}
}

// Recompute rebuilds the nutrient row of a session from its current items.
// It runs inside the caller's transaction so totals commit with the item change.
func (s *Service) Recompute(ctx context.Context, tx *gormstore.Tx, dailyFeedID uint) (*models.DailyFeedNutrients, error) {
	items, err := tx.ItemsForSession(ctx, dailyFeedID)
	if err != nil {
		return nil, fmt.Errorf("load session items: %w", err)
	}

	totals := Compute(items)
	row := &models.DailyFeedNutrients{
		DailyFeedID:  dailyFeedID,
		TotalProtein: totals.Protein,
		TotalEnergy:  totals.Energy,
		TotalFiber:   totals.Fiber,
	}
	if err := tx.UpsertNutrients(ctx, row); err != nil {
		return nil, err
	}

	s.logger.Debug("nutrients recomputed",
		zap.Uint("daily_feed_id", dailyFeedID),
		zap.Int("items", len(items)),
		zap.String("protein", totals.Protein.String()),
	)
	return row, nil
}

// Repair recomputes a session's totals in a transaction of its own.
func (s *Service) Repair(ctx context.Context, dailyFeedID uint) (*models.DailyFeedNutrients, error) {
	var result *models.DailyFeedNutrients
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.LockDailyFeed(ctx, dailyFeedID); err != nil {
			if errors.Is(err, gormstore.ErrNotFound) {
				return apperr.Newf(apperr.CodeNotFound, "Sesi pakan harian dengan ID %d tidak ditemukan", dailyFeedID)
			}
			return fmt.Errorf("lock session: %w", err)
		}

		row, err := s.Recompute(ctx, tx, dailyFeedID)
		if err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RepairAll recomputes every session and returns how many were processed.
func (s *Service) RepairAll(ctx context.Context) (int, error) {
	sessions, err := s.repo.ListDailyFeeds(ctx, gormstore.DailyFeedFilter{})
	if err != nil {
		return 0, err
	}

	for _, session := range sessions {
		if _, err := s.Repair(ctx, session.ID); err != nil {
			return 0, fmt.Errorf("repair session %d: %w", session.ID, err)
		}
	}
	return len(sessions), nil
}

// Get returns the cached totals of a session.
func (s *Service) Get(ctx context.Context, dailyFeedID uint) (*models.DailyFeedNutrients, error) {
	row, err := s.repo.GetNutrients(ctx, dailyFeedID)
	if err != nil {
		if errors.Is(err, gormstore.ErrNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "Data nutrisi untuk sesi %d tidak ditemukan", dailyFeedID)
		}
		return nil, fmt.Errorf("load nutrients: %w", err)
	}
	return row, nil
}

// List returns every cached nutrient row.
func (s *Service) List(ctx context.Context) ([]models.DailyFeedNutrients, error) {
	return s.repo.ListNutrients(ctx)
}
