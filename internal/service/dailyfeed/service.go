package dailyfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/service/ledger"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
	"github.com/mamadbah2/dairyfeed/pkg/clients/weather"
)

// CreateInput opens a feeding session.
type CreateInput struct {
	FarmerID uint   `json:"farmer_id"`
	CowID    uint   `json:"cow_id"`
	Date     string `json:"date"`
	Session  string `json:"session"`
}

// UpdateInput changes session fields. Empty values keep the current ones.
type UpdateInput struct {
	FarmerID uint   `json:"farmer_id"`
	CowID    uint   `json:"cow_id"`
	Date     string `json:"date"`
	Session  string `json:"session"`
	Weather  string `json:"weather"`
}

// Service manages feeding sessions.
type Service struct {
	repo    gormstore.Repository
	weather weather.Provider
	logger  *zap.Logger
}

// NewService wires the session service.
func NewService(repository gormstore.Repository, provider weather.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repository, weather: provider, logger: logger}
}

// Create opens a session for a cow. The weather is looked up before the
// transaction so a slow provider never holds database locks.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.DailyFeed, error) {
	if input.FarmerID == 0 || input.CowID == 0 || input.Date == "" || input.Session == "" {
		return nil, apperr.New(apperr.CodeValidation, "farmer_id, cow_id, date, dan session wajib diisi")
	}
	date, err := normalizeDate(input.Date)
	if err != nil {
		return nil, err
	}
	session, ok := models.NormalizeSession(input.Session)
	if !ok {
		return nil, apperr.Newf(apperr.CodeValidation, "Sesi %q tidak valid, gunakan Pagi, Siang, atau Sore", input.Session)
	}

	current := weather.Unknown
	if s.weather != nil {
		current = s.weather.Current(ctx)
	}

	record := &models.DailyFeed{
		FarmerID: input.FarmerID,
		CowID:    input.CowID,
		Date:     date,
		Session:  session,
		Weather:  current,
	}
	err = s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if err := ensureUnique(ctx, tx, record.CowID, record.Date, record.Session, 0); err != nil {
			return err
		}
		return tx.CreateDailyFeed(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("daily feed session created",
		zap.Uint("id", record.ID),
		zap.Uint("cow_id", record.CowID),
		zap.String("date", record.Date),
		zap.String("session", record.Session),
	)
	return s.Get(ctx, record.ID)
}

// Get returns a session with its items and nutrients.
func (s *Service) Get(ctx context.Context, id uint) (*models.DailyFeed, error) {
	record, err := s.repo.GetDailyFeed(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return record, nil
}

// List returns sessions matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter gormstore.DailyFeedFilter) ([]models.DailyFeed, error) {
	if filter.Session != "" {
		session, ok := models.NormalizeSession(filter.Session)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "Sesi %q tidak valid", filter.Session)
		}
		filter.Session = session
	}
	if err := checkRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	return s.repo.ListDailyFeeds(ctx, filter)
}

// Update changes a session, keeping (cow, date, session) unique.
func (s *Service) Update(ctx context.Context, id uint, input UpdateInput) (*models.DailyFeed, error) {
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		record, err := tx.LockDailyFeed(ctx, id)
		if err != nil {
			return notFound(err, id)
		}

		if input.FarmerID != 0 {
			record.FarmerID = input.FarmerID
		}
		if input.CowID != 0 {
			record.CowID = input.CowID
		}
		if input.Date != "" {
			date, err := normalizeDate(input.Date)
			if err != nil {
				return err
			}
			record.Date = date
		}
		if input.Session != "" {
			session, ok := models.NormalizeSession(input.Session)
			if !ok {
				return apperr.Newf(apperr.CodeValidation, "Sesi %q tidak valid, gunakan Pagi, Siang, atau Sore", input.Session)
			}
			record.Session = session
		}
		if input.Weather != "" {
			record.Weather = input.Weather
		}

		if err := ensureUnique(ctx, tx, record.CowID, record.Date, record.Session, record.ID); err != nil {
			return err
		}
		return tx.SaveDailyFeed(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a session. Every item's quantity goes back to stock first.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var returned int
	err := s.repo.WithinTx(ctx, func(tx *gormstore.Tx) error {
		if _, err := tx.LockDailyFeed(ctx, id); err != nil {
			return notFound(err, id)
		}

		items, err := tx.ItemsForSession(ctx, id)
		if err != nil {
			return err
		}
		for i := range items {
			if err := ledger.ReturnToStock(ctx, tx, &items[i]); err != nil {
				return err
			}
			if err := tx.DeleteItem(ctx, items[i].ID); err != nil {
				return err
			}
		}
		returned = len(items)
		return tx.DeleteDailyFeed(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("daily feed session deleted", zap.Uint("id", id), zap.Int("items_returned", returned))
	return nil
}

// FeedUsage totals consumption per date and feed in an inclusive date range.
func (s *Service) FeedUsage(ctx context.Context, startDate, endDate string) ([]models.DailyUsage, error) {
	if err := checkRange(startDate, endDate); err != nil {
		return nil, err
	}

	rows, err := s.repo.FeedUsage(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	days := make([]models.DailyUsage, 0)
	for _, row := range rows {
		if n := len(days); n == 0 || days[n-1].Date != row.Date {
			days = append(days, models.DailyUsage{Date: row.Date})
		}
		last := &days[len(days)-1]
		last.Feeds = append(last.Feeds, row)
	}
	return days, nil
}

func ensureUnique(ctx context.Context, tx *gormstore.Tx, cowID uint, date, session string, selfID uint) error {
	existing, err := tx.FindDailyFeed(ctx, cowID, date, session)
	if errors.Is(err, gormstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check duplicate session: %w", err)
	}
	if existing.ID == selfID {
		return nil
	}
	return apperr.Newf(apperr.CodeConflict,
		"Data untuk sesi %s pada tanggal %s untuk sapi %d sudah ada", session, date, cowID,
	).WithDetails(map[string]any{"existing_id": existing.ID})
}

func normalizeDate(value string) (string, error) {
	parsed, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return "", apperr.Newf(apperr.CodeValidation, "Format tanggal %q tidak valid, gunakan YYYY-MM-DD", value)
	}
	return parsed.Format(models.DateLayout), nil
}

func checkRange(start, end string) error {
	for _, v := range []string{start, end} {
		if v == "" {
			continue
		}
		if _, err := normalizeDate(v); err != nil {
			return err
		}
	}
	if start != "" && end != "" && start > end {
		return apperr.New(apperr.CodeValidation, "start_date tidak boleh setelah end_date")
	}
	return nil
}

func notFound(err error, id uint) error {
	if errors.Is(err, gormstore.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, "Sesi pakan harian dengan ID %d tidak ditemukan", id)
	}
	return fmt.Errorf("load session %d: %w", id, err)
}
